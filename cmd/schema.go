package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spigell/resume-matcher/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [version]",
	Short: "List the requirement schemas or the variables of one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		validate, _ := cmd.Flags().GetBool("validate")
		if err := showSchema(os.Stdout, args, validate); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().Bool("validate", false, "check the weight and category invariants of the built-in schemas")
}

func showSchema(w io.Writer, args []string, validate bool) error {
	if validate {
		for _, name := range schema.Versions() {
			s, err := schema.Load(name)
			if err == nil {
				err = schema.Validate(s)
			}
			if err != nil {
				return fmt.Errorf("schema %s: %w", name, err)
			}
			fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), name)
		}
		return nil
	}

	if len(args) == 0 {
		for _, name := range schema.Versions() {
			s, _ := schema.Load(name)
			fmt.Fprintf(w, "%-12s %2d variables, %d gates, %s signal\n", name, s.Len(), len(s.Gates()), s.Signal())
		}
		fmt.Fprintf(w, "%-12s generated per posting; industries: %s\n", schema.IndustryName, strings.Join(schema.Industries(), ", "))
		return nil
	}

	s, err := schema.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(w, color.New(color.Bold, color.Underline).Sprint(s.Name()))
	for _, c := range s.Categories() {
		fmt.Fprintf(w, "\n%s weight %.2f\n", color.New(color.Bold).Sprint(c.Name), c.Weight)
		for _, v := range s.VariablesIn(c.Name) {
			marker := ""
			if v.BinaryGate {
				marker = color.YellowString(" gate")
			}
			fmt.Fprintf(w, "  %-40s %.4f%s\n", v.Name, v.Weight, marker)
		}
	}
	return nil
}
