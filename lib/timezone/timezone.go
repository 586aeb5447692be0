package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
}

// force times into the market timezone, showtimes and play dates come off
// the listing sites as local wall-clock values so doing Year()/Day()/Hour()
// math in whatever zone the server happens to run in shifts dayparts and
// play dates across midnight
func Now() time.Time {
	return time.Now().In(Location)
}
