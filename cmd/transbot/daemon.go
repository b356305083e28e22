package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

func installDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install transbot as a user service (launchd/systemd)",
		Long:  `Writes a launchd agent or systemd user unit that runs "transbot run" with the current config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}

			switch runtime.GOOS {
			case "darwin":
				return installLaunchd(execPath, cfgPath)
			case "linux":
				return installSystemd(execPath, cfgPath)
			default:
				return fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", runtime.GOOS)
			}
		},
	}
}

func uninstallDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the transbot user service",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch runtime.GOOS {
			case "darwin":
				return uninstallLaunchd()
			case "linux":
				return uninstallSystemd()
			default:
				return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
			}
		},
	}
}

const (
	launchdLabel = "com.transbot.relay"
	unitName     = "transbot.service"
)

func installLaunchd(execPath, cfgPath string) error {
	home, _ := os.UserHomeDir()
	plistDir := filepath.Join(home, "Library", "LaunchAgents")
	plistPath := filepath.Join(plistDir, launchdLabel+".plist")

	logDir := filepath.Join(home, ".transbot", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	plist := renderLaunchd(execPath, cfgPath, logDir)

	if err := os.MkdirAll(plistDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(plistPath, []byte(plist), 0o644); err != nil {
		return err
	}

	fmt.Printf("Daemon installed: %s\n", plistPath)
	fmt.Printf("To start: launchctl load %s\n", plistPath)
	fmt.Printf("To stop:  launchctl unload %s\n", plistPath)
	return nil
}

func uninstallLaunchd() error {
	home, _ := os.UserHomeDir()
	plistPath := filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist")
	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("remove plist: %w", err)
	}
	fmt.Printf("Daemon uninstalled: %s\n", plistPath)
	return nil
}

func installSystemd(execPath, cfgPath string) error {
	home, _ := os.UserHomeDir()
	unitDir := filepath.Join(home, ".config", "systemd", "user")
	unitPath := filepath.Join(unitDir, unitName)

	unit := renderSystemd(execPath, cfgPath)

	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
		return err
	}

	fmt.Printf("Daemon installed: %s\n", unitPath)
	fmt.Printf("To start:  systemctl --user start transbot\n")
	fmt.Printf("To enable: systemctl --user enable transbot\n")
	fmt.Printf("To stop:   systemctl --user stop transbot\n")
	return nil
}

func uninstallSystemd() error {
	home, _ := os.UserHomeDir()
	unitPath := filepath.Join(home, ".config", "systemd", "user", unitName)
	if err := os.Remove(unitPath); err != nil {
		return fmt.Errorf("remove unit: %w", err)
	}
	fmt.Printf("Daemon uninstalled: %s\n", unitPath)
	return nil
}

// Both service files start the relay in the config directory so a .env
// placed next to config.yaml is picked up.
func renderLaunchd(execPath, cfgPath, logDir string) string {
	return strings.NewReplacer(
		"{{LABEL}}", launchdLabel,
		"{{EXEC}}", execPath,
		"{{CONFIG}}", cfgPath,
		"{{WORKDIR}}", filepath.Dir(cfgPath),
		"{{LOG}}", filepath.Join(logDir, "transbot.out.log"),
		"{{ERR_LOG}}", filepath.Join(logDir, "transbot.err.log"),
	).Replace(launchdTemplate)
}

func renderSystemd(execPath, cfgPath string) string {
	return strings.NewReplacer(
		"{{EXEC}}", execPath,
		"{{CONFIG}}", cfgPath,
		"{{WORKDIR}}", filepath.Dir(cfgPath),
	).Replace(systemdTemplate)
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{LABEL}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{EXEC}}</string>
        <string>run</string>
        <string>--config</string>
        <string>{{CONFIG}}</string>
    </array>
    <key>WorkingDirectory</key>
    <string>{{WORKDIR}}</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{LOG}}</string>
    <key>StandardErrorPath</key>
    <string>{{ERR_LOG}}</string>
</dict>
</plist>`

const systemdTemplate = `[Unit]
Description=transbot chat translation relay
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{EXEC}} run --config {{CONFIG}}
WorkingDirectory={{WORKDIR}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target`
