package main

import (
	"github.com/spf13/cobra"

	"sdportal/internal/jsonbig"
)

// writeJSON encodes v as indented JSON to the command's stdout. Wide relay
// integers are written exactly.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := jsonbig.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
