package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"transbot/internal/detect"
	"transbot/internal/domain"
	"transbot/internal/relay"

	"github.com/spf13/cobra"
)

func translateCmd() *cobra.Command {
	var to, from string
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text once and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			c, _, err := newController(ctx, cfg, false)
			if err != nil {
				return err
			}
			p, err := c.Translate(ctx, relay.CommandRequest{
				Author: domain.Author{DisplayName: "cli"},
				Text:   strings.Join(args, " "),
				To:     domain.LanguageCode(to),
				From:   domain.LanguageCode(from),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Body)
			fmt.Fprintln(cmd.OutOrStdout(), "--", p.Footer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", string(domain.English), "language to translate to")
	cmd.Flags().StringVarP(&from, "from", "f", string(domain.AutoDetect), "language to translate from")
	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [text...]",
		Short: "Detect the language of text and show whether it would be relayed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer closeLog()

			ctx := context.Background()
			detector, err := detect.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("detector: %w", err)
			}
			c := relay.NewController(relay.ControllerConfig{
				Detector: detector,
				Target:   domain.LanguageCode(cfg.Relay.TargetLanguage),
				Logger:   logger,
			})
			d, decision, err := c.Inspect(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if d == nil {
				fmt.Fprintln(out, "language:   (undetermined)")
			} else {
				fmt.Fprintf(out, "language:   %s\n", d.Language)
				fmt.Fprintf(out, "confidence: %.3f\n", d.Confidence)
			}
			fmt.Fprintf(out, "decision:   %s\n", decision)
			fmt.Fprintf(out, "detector:   %s\n", detector.Name())
			return nil
		},
	}
}
