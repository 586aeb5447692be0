package ticketclass

import "regexp"

// Amenity tags. These are the normalized values persisted with a quote, the
// rule tables below map the many spellings seen in the wild onto them.
const (
	AmenityReserved  = "reserved"
	AmenityRecliner  = "recliner"
	Amenity3D        = "3d"
	AmenityIMAX      = "imax"
	AmenityDolby     = "dolby"
	AmenityDBox      = "d-box"
	AmenityBigScreen = "big-screen"
	AmenityLuxury    = "luxury"
)

type baseRule struct {
	pattern *regexp.Regexp
	base    BaseType
}

type amenityRule struct {
	pattern *regexp.Regexp
	tag     string
}

// Ordered: first match wins. "adult" style catch-alls go last so that
// "Child" never falls through to a general-admission rule.
var baseRules = []baseRule{
	{regexp.MustCompile(`(?i)\b(seniors?|sr\.?)\b`), BaseSenior},
	{regexp.MustCompile(`(?i)\b(child(ren)?|kids?|juniors?)\b`), BaseChild},
	{regexp.MustCompile(`(?i)\bstudents?\b`), BaseStudent},
	{regexp.MustCompile(`(?i)\b(military|veterans?|service member)\b`), BaseMilitary},
	{regexp.MustCompile(`(?i)\b(adults?|general admission|general|regular)\b`), BaseAdult},
}

var amenityRules = []amenityRule{
	{regexp.MustCompile(`(?i)\breserved( seating)?\b`), AmenityReserved},
	{regexp.MustCompile(`(?i)\b(recliners?|luxury loungers?)\b`), AmenityRecliner},
	{regexp.MustCompile(`(?i)\b(3-?d|real-?d)\b`), Amenity3D},
	{regexp.MustCompile(`(?i)\bimax\b`), AmenityIMAX},
	{regexp.MustCompile(`(?i)\b(dolby( cinema)?|atmos)\b`), AmenityDolby},
	{regexp.MustCompile(`(?i)\bd-?box\b`), AmenityDBox},
	{regexp.MustCompile(`(?i)\b(xd|rpx|superscreen|ultrascreen|grand screen|prime)\b`), AmenityBigScreen},
	{regexp.MustCompile(`(?i)\b(luxury|vip)\b`), AmenityLuxury},
}
