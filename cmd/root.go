package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cclens",
	Short: "Indexed, watchable view of a Claude configuration tree",
	Long: `cclens indexes a Claude-style configuration tree (~/.claude):
  - per-project session logs (append-only JSONL)
  - aggregate usage stats
  - cascading settings (local > project > global > defaults)
  - agent/command/skill descriptors

It maintains a durable fingerprint cache so unchanged files are never
re-parsed, and can watch the tree to keep the index fresh for other
front ends.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cclens/config.toml)")
	rootCmd.PersistentFlags().String("claude-dir", "", "monitored tree root (default is $HOME/.claude)")
	rootCmd.PersistentFlags().String("project-dir", "", "project root contributing .claude/settings.json")

	viper.BindPFlag("claude_dir", rootCmd.PersistentFlags().Lookup("claude-dir"))
	viper.BindPFlag("project_dir", rootCmd.PersistentFlags().Lookup("project-dir"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "cclens")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("cclens")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("watch.debounce_ms", 300)
	viper.SetDefault("watch.workers", 4)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("embeddings.enabled", true)
	viper.SetDefault("embeddings.model", "nomic-embed-text")
	viper.SetDefault("embeddings.ollama_url", "http://localhost:11434")
	viper.SetDefault("search.keyword_weight", 0.3)
	viper.SetDefault("search.semantic_weight", 0.7)

	viper.ReadInConfig()
}
