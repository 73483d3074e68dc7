package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/kjk/reckeep/log"
	"github.com/kjk/reckeep/recstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// returned after unknown command message and usage were already printed
var errUnknownCommand = errors.New("unknown command")

type app struct {
	stdout io.Writer
	stderr io.Writer

	v          *viper.Viper
	configFile string
	store      *recstore.Store
}

// openStore loads config, sets up logging and creates the store
func (a *app) openStore() (*recstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	cfg, err := loadConfig(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	storeCfg, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}
	log.Init(&log.Config{
		Dir:     cfg.LogDir,
		Console: a.stderr,
	})
	log.Verbose = cfg.Verbose

	a.store, err = recstore.New(storeCfg)
	if err != nil {
		return nil, err
	}
	log.Verbosef("store: %s, fields: %s\n", a.store.Path(), a.store.Codec().Schema())
	return a.store, nil
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reckeep",
		Short: "Keep key=value records in a flat text file",
		Long: `reckeep appends records to a pipe-delimited text file (data/store.txt by default)
and lists or summarizes them.

  reckeep init | add key=value... | list | summary

Configuration is read from reckeep.yaml, RECKEEP_* environment variables and flags.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			fmt.Fprintf(a.stderr, "unknown command %q\n", args[0])
			fmt.Fprint(a.stderr, cmd.UsageString())
			return errUnknownCommand
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: reckeep.yaml in . or $XDG_CONFIG_HOME/reckeep)")
	flags.String("store", "", "path of the store file (default: "+recstore.DefaultPath+")")
	flags.BoolP("verbose", "v", false, "log what's being done to stderr")
	_ = a.v.BindPFlag("store_path", flags.Lookup("store"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))

	root.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.listCmd(),
		a.summaryCmd(),
		a.restoreCmd(),
	)
	return root
}

func (a *app) initCmd() *cobra.Command {
	var backup bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty store, deleting all existing records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			backupPath := ""
			if backup {
				_, err := os.Stat(s.Path())
				if err == nil {
					backupPath = s.SnapshotName(time.Now())
					if err = s.Snapshot(backupPath); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "backup: %s\n", backupPath)
				} else if !errors.Is(err, fs.ErrNotExist) {
					// can't tell if there's anything to back up
					return fmt.Errorf("backup: %w", err)
				}
			}
			if err = s.Initialize(); err != nil {
				return err
			}
			log.Verbosef("initialized %s\n", s.Path())
			log.Event("init", "store", s.Path(), "backup", backupPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", false, "save a compressed snapshot of existing records first")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add key=value [key=value ...]",
		Short: "Append a record",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			rec, err := s.Codec().ParseFields(args)
			if err != nil {
				return err
			}
			if err = s.Append(rec); err != nil {
				return err
			}
			line := s.Codec().Encode(rec)
			log.Verbosef("added %s\n", line)
			log.Event("add", "store", s.Path(), "record", line)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var format string
	var prettyPrint bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			records, err := s.LoadAll()
			if err != nil {
				return err
			}
			return writeRecords(a.stdout, format, prettyPrint, s.Codec(), records)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatKV, "output format: kv, json or toon")
	cmd.Flags().BoolVar(&prettyPrint, "pretty", false, "indent json output")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print number of records (and total of numeric_field, if configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			records, err := s.LoadAll()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, s.Summarize(records))
			return err
		},
	}
}

func (a *app) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot>",
		Short: "Replace all records with records from a snapshot made by init --backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			n, err := s.Restore(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "restored %d records\n", n)
			log.Event("restore", "store", s.Path(), "snapshot", args[0], "count", n)
			return nil
		},
	}
}

// run executes command line args and returns process exit code
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		v:      viper.New(),
	}
	root := a.rootCmd()
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	defer log.Close()

	err := root.Execute()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errUnknownCommand) {
		fmt.Fprintf(stderr, "error: %s\n", err)
	}
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
