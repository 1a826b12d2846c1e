// ABOUTME: Root Cobra command and global flags for the circle CLI.
// ABOUTME: Lifecycle hooks load config and build the session, API client, and realtime manager.
package main

import (
	"flag"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/api"
	"github.com/2389-research/circle/internal/config"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
)

var globalConfig *config.Config
var globalTokens *session.FileTokenStore
var globalSession *session.Session
var globalClient *api.Client
var globalManager *realtime.Manager

// commands that run before any credential exists
var noSessionCommands = map[string]bool{
	"help":       true,
	"version":    true,
	"setup":      true,
	"login":      true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "circle",
	Short: "Circle social feed in your terminal",
	Long: `
 ██████╗██╗██████╗  ██████╗██╗     ███████╗
██╔════╝██║██╔══██╗██╔════╝██║     ██╔════╝
██║     ██║██████╔╝██║     ██║     █████╗
██║     ██║██╔══██╗██║     ██║     ██╔══╝
╚██████╗██║██║  ██║╚██████╗███████╗███████╗
 ╚═════╝╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝

Read the feed, like, comment, and follow from the command line.
Live updates arrive over the realtime channel.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		globalConfig = cfg

		tokenPath, err := cfg.GetTokenPath()
		if err != nil {
			return fmt.Errorf("failed to resolve token path: %w", err)
		}
		globalTokens = session.NewFileTokenStore(tokenPath)

		if noSessionCommands[cmd.Name()] {
			return nil
		}

		sess, err := session.Open(globalTokens)
		if err != nil {
			return err
		}
		if !sess.Valid() {
			return fmt.Errorf("not logged in - run 'circle login <token>' or 'circle setup' first")
		}
		globalSession = sess
		globalClient = api.NewClient(cfg.APIURL(), sess)
		globalManager = realtime.NewManager(newTransport(cfg, sess), sess)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalManager != nil {
			for globalManager.Refs() > 0 {
				globalManager.Release()
			}
			globalManager.Wait()
			globalManager = nil
		}
		return nil
	},
}

func init() {
	// glog registers -v, -logtostderr and friends on the standard flag set
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// newTransport picks the realtime transport named in the config.
func newTransport(cfg *config.Config, sess *session.Session) realtime.Transport {
	if cfg.RealtimeTransport() == config.TransportNATS {
		return realtime.NewNATSTransport(cfg.Realtime.NATSURL, sess)
	}
	return realtime.NewWebsocketTransport(cfg.RealtimeURL(), sess, realtime.DefaultWebsocketSettings())
}
