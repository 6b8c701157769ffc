// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/reader"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/dgnsrekt/readaloud/internal/tts/engines"
	"github.com/dgnsrekt/readaloud/ui"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	engineName   string
	width        uint
	showAllFiles bool
	mouse        bool
	debug        bool

	rootCmd = &cobra.Command{
		Use:   "readaloud [FILE|DIR]",
		Short: "Read documents aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead PDF, Word, Markdown and text documents %s, paragraph by paragraph.", keyword("aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"pdf", "docx", "md", "markdown", "txt"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	showAllFiles = viper.GetBool("all")
	debug = viper.GetBool("debug")

	level := log.InfoLevel
	if s := viper.GetString("log_level"); s != "" {
		l, err := log.ParseLevel(s)
		if err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		level = l
	}
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	// The engine flag takes precedence over the config file.
	if cmd.Flags().Changed("engine") {
		viper.Set("engine", engineName)
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("readaloud needs an interactive terminal, use `readaloud parse` to print a document")
	}

	var path string
	if len(args) > 0 {
		p, err := expandPath(args[0])
		if err != nil {
			return err
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("unable to open %s: %w", args[0], err)
		}
		path = p
	}

	return runTUI(path)
}

// expandPath resolves ~ and makes path absolute.
func expandPath(path string) (string, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("unable to expand path: %w", err)
	}
	p, err = filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("unable to get absolute path: %w", err)
	}
	return p, nil
}

// newBackend creates the speech engine and opens the audio device.
func newBackend(ctx context.Context) (ui.Backend, func(), error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return ui.Backend{}, nil, err
	}

	engine, err := engines.New(ctx, cfg)
	if err != nil {
		return ui.Backend{}, nil, fmt.Errorf("unable to start speech engine: %w", err)
	}

	playerCfg := audio.DefaultPlayerConfig()
	playerCfg.Volume = cfg.Volume
	player, err := audio.NewPlayer(playerCfg)
	if err != nil {
		_ = engine.Close()
		return ui.Backend{}, nil, fmt.Errorf("unable to open audio device: %w", err)
	}

	info := engine.Info()
	log.Info("speech engine ready", "engine", info.Name, "model", info.Model, "voice", info.Voice)

	closer := func() {
		if err := player.Close(); err != nil {
			log.Debug("closing audio device", "error", err)
		}
		if err := engine.Close(); err != nil {
			log.Debug("closing speech engine", "error", err)
		}
	}

	session := reader.SessionConfigFrom(cfg)
	session.Logger = log.Default()

	return ui.Backend{Synth: engine, Sink: player, Session: session}, closer, nil
}

func runTUI(path string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = path
	cfg.ShowAllFiles = showAllFiles
	cfg.WrapWidth = width
	cfg.EnableMouse = mouse

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := newBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Run Bubble Tea program
	if _, err := ui.NewProgram(ctx, cfg, backend).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVarP(&engineName, "engine", "e", tts.EngineGemini, "speech engine (gemini or mock)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug output to the log file")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to fit the terminal)")
	rootCmd.Flags().BoolVarP(&showAllFiles, "all", "a", false, "show system files and directories")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", true, "enable mouse selection")

	// Config bindings
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("all", rootCmd.Flags().Lookup("all"))
	_ = viper.BindEnv("gemini.api_key", "READALOUD_GEMINI_API_KEY", "GEMINI_API_KEY")

	viper.SetDefault("width", 0)
	viper.SetDefault("mouse", true)
	viper.SetDefault("all", false)
	viper.SetDefault("log_level", "info")
	tts.SetDefaults()

	rootCmd.AddCommand(configCmd, manCmd, parseCmd, sayCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "readaloud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readaloud")}, dirs...)
	}

	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readaloud")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readaloud")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "readaloud.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
