package main

import (
	"context"
	"os"

	"cinescope-backend/cmd/cinescope-cli/commands"
	"cinescope-backend/lib/serviceutil"
	"cinescope-backend/lib/telemetry"
)

func main() {
	err := telemetry.SetupFromEnv(context.Background(), "cinescope-cli")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	ctx := serviceutil.SignalContext()
	telemetry.InstrumentPerfStats(ctx)
	commands.ExecuteContext(ctx)
}
