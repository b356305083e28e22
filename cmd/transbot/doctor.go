package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"transbot/internal/config"
	"transbot/internal/detect"
	"transbot/internal/domain"
	"transbot/internal/provider"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your transbot setup",
		Long: `Verifies that transbot's configuration, credentials, detector and
translation provider are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("transbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			var r report

			// 1. Config file
			if _, err := os.Stat(cfgPath); err != nil {
				r.warn("Config file", fmt.Sprintf("not found at %s, using defaults and environment", cfgPath))
			} else {
				r.pass("Config file", cfgPath)
			}

			// 2. Config loads and validates
			cfg, err := config.LoadOrDefaults(cfgPath)
			if err != nil {
				if errors.Is(err, domain.ErrMissingCredential) {
					r.fail("Credentials", err.Error())
				} else {
					r.fail("Config validation", err.Error())
				}
				return r.summary()
			}
			r.pass("Config validation", "valid")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			// 3. Channels
			enabled := 0
			if cfg.Channels.Discord.Enabled {
				enabled++
				scope := "global commands"
				if cfg.Channels.Discord.GuildID != "" {
					scope = "commands on guild " + cfg.Channels.Discord.GuildID
				}
				r.pass("Discord", "token set, "+scope)
			}
			if cfg.Channels.Telegram.Enabled {
				enabled++
				r.pass("Telegram", "token set")
			}
			if enabled == 0 {
				r.fail("Channels", "none enabled (set DISCORD_TOKEN or TELEGRAM_TOKEN)")
			}
			if n := len(cfg.Relay.AutoTranslateCategories); n > 0 {
				r.pass("Auto-translate scope", fmt.Sprintf("%d allowed categories/chats", n))
			} else {
				r.warn("Auto-translate scope", "no allow-list, every channel is relayed")
			}

			// 4. Detector
			if d, err := detect.New(ctx, cfg, logger); err != nil {
				r.fail("Detector: "+cfg.Detector.Provider, err.Error())
			} else {
				r.pass("Detector: "+d.Name(), "ready")
			}

			// 5. Translator
			tr, err := provider.NewFactory(cfg.Translator, logger).Default(ctx)
			switch {
			case err != nil:
				r.fail("Translator: "+cfg.Translator.Provider, err.Error())
			default:
				if err := tr.Healthy(ctx); err != nil {
					r.warn("Translator: "+tr.Name(), err.Error())
				} else {
					r.pass("Translator: "+tr.Name(), "reachable")
				}
			}

			// 6. Metrics address
			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					r.warn("Metrics address", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
				} else {
					r.pass("Metrics address", cfg.Metrics.Addr+" available")
				}
			}

			// 7. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					r.warn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
				} else {
					r.pass("Log file", cfg.General.LogFile)
				}
			}

			return r.summary()
		},
	}
}

type report struct {
	passed, warned, failed int
}

func (r *report) pass(check, detail string) {
	r.passed++
	fmt.Printf("  [PASS] %-24s %s\n", check, detail)
}

func (r *report) fail(check, detail string) {
	r.failed++
	fmt.Printf("  [FAIL] %-24s %s\n", check, detail)
}

func (r *report) warn(check, detail string) {
	r.warned++
	fmt.Printf("  [WARN] %-24s %s\n", check, detail)
}

func (r *report) summary() error {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		fmt.Printf("\nPlease fix the failed checks before running transbot.\n")
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	if r.warned > 0 {
		fmt.Printf("\ntransbot should work but consider fixing the warnings.\n")
	} else {
		fmt.Printf("\nAll checks passed! transbot is ready to run.\n")
	}
	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
