package main

import (
	"fmt"
	"os"
	"time"

	"arrivals-go/internal/app"
	"arrivals-go/internal/archive"
	"arrivals-go/internal/config"
	"arrivals-go/internal/encryption"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Run", "History").
// apiKey may be empty for commands that never reach the remote API.
func newApp(operation, apiKey string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation, apiKey)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readConfig loads the config file from the default location.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "arv",
	Short: "Subway arrival snapshot collector",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		// Create config with defaults
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:   %s\n", cfg.HostID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Timezone:  %s\n", cfg.Timezone)
		fmt.Printf("API key:   $%s\n", keyEnvName(cfg))
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Archive:   %s\n", cfg.Archive.Type)
		return nil
	},
}

var configArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the backup archive",
}

var configArchiveCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the backup archive is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		arch, err := archive.NewArchiveFromConfig(cfg.Archive)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		if arch == nil {
			return fmt.Errorf("no archive configured (archive.type = %q)", cfg.Archive.Type)
		}

		if err := arch.ValidateSetup(); err != nil {
			return fmt.Errorf("archive check failed: %w", err)
		}
		fmt.Printf("Archive OK (type=%s)\n", cfg.Archive.Type)

		version, err := arch.BackupVersion(app.BackupName(cfg.HostID))
		if err != nil {
			return fmt.Errorf("checking archived backup version: %w", err)
		}
		if version > 0 {
			fmt.Printf("Latest backup version: %d\n", version)
		} else {
			fmt.Println("No backup stored for this host yet.")
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		if enc == nil {
			return fmt.Errorf("encryption is disabled in config (encryption.type = %q)", cfg.Encryption.Type)
		}
		if enc.IsConfigured() {
			return fmt.Errorf("key pair already exists at %s", cfg.Encryption.PrivateKeyPath)
		}

		fmt.Print("Passphrase for the private key: ")
		passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}

		fmt.Print("Confirm passphrase: ")
		confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading passphrase confirmation: %w", err)
		}

		if string(passphrase) != string(confirm) {
			return fmt.Errorf("passphrases do not match")
		}

		if err := enc.Setup(string(passphrase)); err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform one collection tick",
	Long: "Evaluates the time policy, the interval gate and the call budget, " +
		"and collects a snapshot when all three allow it. Exits 0 when a " +
		"snapshot was collected and 1 when a gate blocked the tick.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawRanges, _ := cmd.Flags().GetString("ranges")

		// Optional .env file next to the working directory.
		_ = godotenv.Load()

		cfg, err := readConfig()
		if err != nil {
			return err
		}

		apiKey := os.Getenv(keyEnvName(cfg))
		if apiKey == "" {
			return fmt.Errorf("API key not set: export %s", keyEnvName(cfg))
		}

		a, err := app.NewApp(cfg, "Run", apiKey)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}

		result, err := a.RunOnce(rawRanges)
		if err != nil {
			a.Close()
			return err
		}

		if result.Executed {
			s := result.Snapshot
			fmt.Printf("Snapshot %s: %d row(s) inserted, %d duplicate(s), %d error page(s) [%s]\n",
				s.SnapshotID, s.InsertedTotal, s.DuplicatesTotal, s.ErrorsTotal, s.Status)
		} else {
			fmt.Printf("Blocked: %s (bucket=%s, interval=%ds)\n",
				result.Reason, result.Bucket, result.IntervalSeconds)
		}

		if err := a.Close(); err != nil {
			return err
		}

		if !result.Executed {
			os.Exit(1)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View collection run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No collection runs recorded.")
			return nil
		}

		for _, op := range ops {
			duration := op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			params := op.Parameters
			if params == "" {
				params = "-"
			}
			fmt.Printf("#%d  %-8s  %s  %-22s  %-24s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				params,
				duration,
			)
		}
		return nil
	},
}

// policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the time policy decision for right now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Policy", "")
		if err != nil {
			return err
		}
		defer a.Close()

		decision, err := a.PolicyNow()
		if err != nil {
			return err
		}

		fmt.Printf("Bucket:   %s\n", decision.Bucket)
		fmt.Printf("Collect:  %v\n", decision.ShouldCollect)
		if decision.ShouldCollect {
			fmt.Printf("Interval: %ds\n", decision.IntervalSeconds)
		} else {
			fmt.Printf("Next window in: %ds\n", decision.IntervalSeconds)
		}
		return nil
	},
}

// budget command
var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show today's remaining API call budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Budget", "")
		if err != nil {
			return err
		}
		defer a.Close()

		budget, used, err := a.BudgetNow()
		if err != nil {
			return err
		}

		fmt.Printf("Used:      %d call(s)\n", used)
		fmt.Printf("Remaining: %d call(s)\n", budget.RemainingCalls)
		fmt.Printf("Status:    %s\n", budget.Reason)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Download the archived database backup",
	Long: "Fetches this host's database backup from the archive and writes it " +
		"next to the live database with a .restored suffix. The live database " +
		"is never overwritten; inspect the restored file and move it into place.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}

		var passphrase []byte
		if enc != nil && enc.IsConfigured() {
			fmt.Print("Passphrase for the private key: ")
			passphrase, err = term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading passphrase: %w", err)
			}
		}

		result, err := app.RestoreBackup(cfg, passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("Restored backup version %d to %s\n", result.Version, result.OutputPath)
		if result.Decrypted {
			fmt.Println("The backup was decrypted with the configured key pair.")
		}
		return nil
	},
}

// keyEnvName returns the environment variable carrying the API key.
func keyEnvName(cfg *config.Config) string {
	if cfg.API.KeyEnv != "" {
		return cfg.API.KeyEnv
	}
	return config.DefaultKeyEnv
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configArchiveCmd)
	configArchiveCmd.AddCommand(configArchiveCheckCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("ranges", "p", "", "Fixed page ranges, e.g. \"1000-1999,2000-2999\" (skips the paging probe)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(restoreCmd)
}
