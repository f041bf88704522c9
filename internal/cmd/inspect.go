package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"tabspaces/internal/domain"
	"tabspaces/internal/snapshot"
)

// InspectCmd groups read-only debugging views over the persisted records
type InspectCmd struct {
	State    InspectStateCmd    `cmd:"state" help:"Print the persisted workspace directory state"`
	Snapshot InspectSnapshotCmd `cmd:"snapshot" help:"Print the persisted session snapshot"`
}

// InspectStateCmd prints the workspace directory state as JSON
type InspectStateCmd struct{}

// Run executes the state inspection
func (i *InspectStateCmd) Run(cli *CLI) error {
	state, err := cli.Container.Store.GetState(context.Background())
	if err != nil {
		return err
	}
	return printJSON(state)
}

// InspectSnapshotCmd prints the session snapshot, decoded through the same
// tolerant path restore uses, or verbatim with --raw.
type InspectSnapshotCmd struct {
	Raw bool `help:"Print the stored record verbatim"`
}

// Run executes the snapshot inspection
func (i *InspectSnapshotCmd) Run(cli *CLI) error {
	raw, err := cli.Container.Store.LoadRecord(context.Background(), domain.SnapshotKey)
	if err != nil {
		return err
	}
	if raw == nil {
		fmt.Println("no snapshot stored")
		return nil
	}
	if i.Raw {
		_, err := os.Stdout.Write(append(raw, '\n'))
		return err
	}

	snap := snapshot.Decode(raw)
	if snap == nil {
		return fmt.Errorf("stored snapshot did not survive decoding")
	}
	return printJSON(snap)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
