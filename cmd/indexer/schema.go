package main

import (
	"encoding/json"
	"fmt"

	"github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r := &jsonschema.Reflector{FieldNameTag: "json", RequiredFromJSONSchemaTags: true}
		s := r.Reflect(&config.Config{})

		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
