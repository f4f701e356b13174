package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
)

const (
	minUsername = 4
	maxUsername = 20
)

type Config struct {
	server      string
	room        string
	username    string
	listen      string
	databaseURL string
	verbose     bool

	questions int
	mode      string
	limit     int
}

func (c *Config) validateCommon() error {
	u, err := url.Parse(c.server)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid --server %q", c.server)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("--server must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validateUsername(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minUsername || n > maxUsername {
		return fmt.Errorf("username must be between %d and %d characters", minUsername, maxUsername)
	}
	return nil
}

func (c *Config) validateJoin() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if strings.TrimSpace(c.room) == "" {
		return errors.New("--room is required")
	}
	return validateUsername(c.username)
}

func (c *Config) validatePlay() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.questions < 1 {
		return fmt.Errorf("invalid --questions (must be at least 1): %d", c.questions)
	}
	if _, err := c.gameMode(); err != nil {
		return err
	}
	return nil
}

func (c *Config) gameMode() (engine.Mode, error) {
	switch m := engine.Mode(strings.ToUpper(c.mode)); m {
	case engine.ModeMCQ, engine.ModeMap:
		return m, nil
	default:
		return "", fmt.Errorf("invalid --mode %q (want MCQ or MAP)", c.mode)
	}
}

// bindEnv lets every flag in fs be set from FLAGS_<NAME>. Flags given on the
// command line still win.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FLAGS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "flags-quiz",
		Short:         "Terminal client for the multiplayer flags quiz.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "quiz server base url (env: FLAGS_SERVER)")
	pfs.StringVarP(&cfg.username, "username", "u", "", "player name, 4-20 characters (env: FLAGS_USERNAME)")
	pfs.StringVar(&cfg.databaseURL, "database-url", "", "postgres url for results and preferences (env: FLAGS_DATABASE_URL)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display debug logs (env: FLAGS_VERBOSE)")
	bindEnv(v, pfs)

	join := &cobra.Command{
		Use:   "join",
		Short: "Join a multiplayer room.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), cfg)
		},
	}
	jfs := join.Flags()
	jfs.StringVarP(&cfg.room, "room", "r", "", "room code to join (env: FLAGS_ROOM)")
	jfs.StringVarP(&cfg.listen, "listen", "l", "", "address for the local view server, empty to disable (env: FLAGS_LISTEN)")
	bindEnv(v, jfs)

	play := &cobra.Command{
		Use:   "play",
		Short: "Play a single-player game.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validatePlay(); err != nil {
				return err
			}
			return runPlay(cmd.Context(), cfg)
		},
	}
	sfs := play.Flags()
	sfs.IntVarP(&cfg.questions, "questions", "n", 10, "number of questions (env: FLAGS_QUESTIONS)")
	sfs.StringVarP(&cfg.mode, "mode", "m", string(engine.ModeMCQ), "MCQ or MAP (env: FLAGS_MODE)")
	bindEnv(v, sfs)

	history := &cobra.Command{
		Use:   "history",
		Short: "Show recent multiplayer results.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cfg)
		},
	}
	hfs := history.Flags()
	hfs.IntVar(&cfg.limit, "limit", 5, "number of matches to show (env: FLAGS_LIMIT)")
	bindEnv(v, hfs)

	cmd.AddCommand(join, play, history)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("flags-quiz v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
