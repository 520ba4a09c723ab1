// metaform is a developer tool over the form engine: it fetches entity
// metadata from a backend and shows how the engine classifies, renders and
// validates against it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/app"
	"github.com/eventara/metaform/client"
	"github.com/eventara/metaform/form"
	"github.com/eventara/metaform/meta"
	"github.com/eventara/metaform/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagBaseURL string
	flagToken   string
)

func backend() *client.Client {
	base := flagBaseURL
	if base == "" {
		base = app.BaseURL()
	}
	token := flagToken
	if token == "" {
		token = app.Token()
	}
	return client.New(base, client.WithToken(token))
}

func currentSession() *session.Session {
	token := flagToken
	if token == "" {
		token = app.Token()
	}
	sess, err := session.FromToken(token)
	if err != nil {
		return nil
	}
	return sess
}

var rootCmd = &cobra.Command{
	Use:   "metaform",
	Short: "inspect metadata-driven forms",
}

var describeCmd = &cobra.Command{
	Use:   "describe <entity>",
	Short: "show an entity's field metadata and how each field classifies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		em, err := backend().Metadata(context.Background(), args[0])
		if err != nil {
			return err
		}
		bold := color.New(color.Bold)
		bold.Printf("%s (%s)\n", em.Label, em.ResolvedEndpoint())
		for _, f := range em.AllFormFields() {
			c := meta.Classify(f)
			line := fmt.Sprintf("  %-24s %-10s -> %-10s", f.Name, f.Type, c.Kind)
			if f.Required {
				line += color.RedString(" required")
			}
			if c.Mask.String() != "none" {
				line += color.YellowString(" mask:%s", c.Mask)
			}
			if f.Computed != "" {
				line += color.CyanString(" computed:%s", f.Computed)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <entity> [id]",
	Short: "hydrate a form and print its resolved controls",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli := backend()
		em, err := cli.Metadata(context.Background(), args[0])
		if err != nil {
			return err
		}
		opts := []form.Option{form.WithClient(cli), form.WithSession(currentSession())}
		if len(args) == 2 {
			opts = append(opts, form.WithRecordID(args[1]))
		}
		f := form.New(em, opts...)
		if err := f.Hydrate(context.Background()); err != nil {
			return err
		}
		mode := "create"
		if f.Editing() {
			mode = "edit"
		}
		color.New(color.Bold).Printf("%s [%s]\n", em.Label, mode)
		for _, ctrl := range f.Controls() {
			line := fmt.Sprintf("  %-24s %-10s", ctrl.Field.Name, ctrl.Kind)
			if ctrl.Disabled {
				line += color.HiBlackString(" disabled")
			}
			if ctrl.Err != "" {
				line += color.RedString(" !%s", ctrl.Err)
			}
			if ctrl.Value != nil {
				line += fmt.Sprintf("  = %v", ctrl.Value)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <entity> <payload.json>",
	Short: "validate a payload file and print the shaped submission",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		em, err := backend().Metadata(context.Background(), args[0])
		if err != nil {
			return err
		}
		bts, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		payload, errs := form.ShapeAndValidate(em, metaform.FromJSON(string(bts)), currentSession())
		if errs != nil {
			for _, field := range errs.Fields() {
				color.Red("  %s: %s", field, errs[field])
			}
			return fmt.Errorf("%d invalid field(s)", len(errs))
		}
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		color.Green("payload ok")
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (default from application.yml)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token (default from METAFORM_TOKEN or application.yml)")
	rootCmd.AddCommand(describeCmd, renderCmd, checkCmd)
	if err := rootCmd.Execute(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
