package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/cclens/internal/config"
	"github.com/pders01/cclens/internal/embeddings"
	"github.com/pders01/cclens/internal/models"
	"github.com/pders01/cclens/internal/ollama"
)

var searchProject string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search sessions using hybrid keyword and semantic search",
	Long: `Search session summaries using hybrid search.

Combines keyword matching with semantic similarity when Ollama is
available. Summary embeddings are generated on first use and persisted
under the vectors directory.

Example:
  cclens search "websocket reconnect bug"
  cclens search --project my-app "migration"

Search modes:
  - Keyword only: When embeddings disabled or Ollama not running
  - Hybrid: keyword + semantic, weighted per configuration`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchProject, "project", "", "Filter by project name")
}

type searchResult struct {
	Session *models.SessionMeta
	Score   float64
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	queryWords := strings.Fields(strings.ToLower(query))

	st, err := buildIndex(cmd.Context())
	if err != nil {
		return err
	}

	sessions := st.ReadSnapshot().Sessions()
	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	// Try to generate a query embedding for semantic search.
	var client *ollama.Client
	var queryVec []float64
	useSemantic := false

	if config.GetEmbeddingsEnabled() && ollama.IsAvailable(config.GetOllamaURL()) {
		client, err = ollama.NewClient(config.GetOllamaURL(), config.GetEmbeddingModel())
		if err == nil {
			queryVec, err = client.Embed(cmd.Context(), query)
			if err == nil {
				useSemantic = true
				fmt.Println("Using hybrid search (keyword + semantic)")
			}
		}
	}
	if !useSemantic {
		fmt.Println("Using keyword search only")
	}

	keywordWeight := config.GetKeywordWeight()
	semanticWeight := config.GetSemanticWeight()

	var results []searchResult
	for _, s := range sessions {
		if searchProject != "" && s.Project != searchProject {
			continue
		}

		score := keywordScore(queryWords, s)
		if useSemantic {
			if vec, ok := sessionVector(cmd.Context(), client, s); ok {
				if sim, err := embeddings.CosineSimilarity(queryVec, vec); err == nil {
					score = keywordWeight*score + semanticWeight*(sim+1)/2
				}
			}
		}

		if score > 0 {
			results = append(results, searchResult{Session: s, Score: score})
		}
	}

	if len(results) == 0 {
		fmt.Println("No sessions match the query")
		return nil
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > 10 {
		results = results[:10]
	}

	fmt.Printf("\nTop %d result(s):\n\n", len(results))
	for _, r := range results {
		fmt.Printf("  %.3f  %s  %s\n", r.Score, r.Session.ShortID, r.Session.Project)
		if r.Session.Summary != "" {
			fmt.Printf("         %s\n", r.Session.Summary)
		}
	}

	return nil
}

// keywordScore is the fraction of query words present in the session's
// summary, project, or model names.
func keywordScore(queryWords []string, s *models.SessionMeta) float64 {
	if len(queryWords) == 0 {
		return 0
	}

	haystack := strings.ToLower(s.Summary + " " + s.Project + " " + strings.Join(s.Models, " "))
	matched := 0
	for _, word := range queryWords {
		if strings.Contains(haystack, word) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

// sessionVector loads or lazily creates the persisted embedding for a
// session summary. Any failure just means no semantic component for
// this session.
func sessionVector(ctx context.Context, client *ollama.Client, s *models.SessionMeta) ([]float64, bool) {
	if s.Summary == "" {
		return nil, false
	}

	path := embeddings.VectorPath(config.VectorsDir(), s.ID)
	if vec, err := embeddings.ReadVector(path); err == nil {
		return vec, true
	} else if !errors.Is(err, fs.ErrNotExist) {
		// A damaged vector file gets regenerated below.
		os.Remove(path)
	}

	vec, err := client.Embed(ctx, s.Summary)
	if err != nil {
		return nil, false
	}
	if err := embeddings.WriteVector(path, vec); err != nil {
		return vec, true
	}
	return vec, true
}
