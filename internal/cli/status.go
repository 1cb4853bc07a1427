package cli

import (
	"context"
	"fmt"

	"github.com/kilnhq/kilnd/internal/protocol"
)

// Represents the 'kilnd status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	_, result, err := roundTrip(protocol.CmdStatus, nil)
	if err != nil {
		return err
	}

	status, err := protocol.DecodePayload[protocol.StatusResult](result)
	if err != nil {
		return err
	}

	fmt.Printf("version: %s\n", status.Version)
	fmt.Printf("pid:     %d\n", status.Pid)
	fmt.Printf("uptime:  %s\n", status.Uptime)
	fmt.Printf("builds:  %d\n", status.Builds)
	return nil
}
