package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var searchLawsCmd = &cobra.Command{
	Use:   "search-laws [query]",
	Short: "Search for laws by alias, concept, full text, and semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		out, err := eng.SearchLaws(cmd.Context(), args[0], category, status, limit)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var getArticleCmd = &cobra.Command{
	Use:   "get-article [law] [article-number]",
	Short: "Fetch a single article's content, status, siblings, and cross-references",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := eng.GetArticle(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var searchArticleContentCmd = &cobra.Command{
	Use:   "search-article-content [keywords]",
	Short: "Search article bodies and rank hits by reciprocal rank fusion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		out, err := eng.SearchArticleContent(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var checkLawValidityCmd = &cobra.Command{
	Use:   "check-law-validity [law]",
	Short: "Report whether a law is in force, repealed, amended, or not yet effective",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := eng.CheckLawValidity(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var getLawStructureCmd = &cobra.Command{
	Use:   "get-law-structure [law]",
	Short: "Print a law's book/chapter/section hierarchy without article content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := eng.GetLawStructure(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var getLegalBasisCmd = &cobra.Command{
	Use:   "get-legal-basis [case-description]",
	Short: "Extract keywords from a case description and search for applicable laws",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		out, err := eng.GetLegalBasis(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var batchVerifyCitationsCmd = &cobra.Command{
	Use:   "batch-verify-citations [text]",
	Short: "Scan text for statute citations and report each one's validity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := args[0]
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("batch-verify-citations: %w", err)
			}
			text = string(b)
		}
		out, err := eng.BatchVerifyCitations(cmd.Context(), text)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var clearCachesCmd = &cobra.Command{
	Use:   "clear-caches",
	Short: "Empty the alias/law/concept LRU caches and reload the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng.ClearCaches()
		fmt.Println("caches cleared")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print law and article counts by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := eng.GetStatistics(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	searchLawsCmd.Flags().String("category", "", "restrict to a law category")
	searchLawsCmd.Flags().String("status", "", "restrict to a law status (default: in_force)")
	searchLawsCmd.Flags().Int("limit", 15, "maximum results")

	searchArticleContentCmd.Flags().Int("limit", 10, "maximum results")

	getLegalBasisCmd.Flags().Int("limit", 5, "maximum results")

	batchVerifyCitationsCmd.Flags().String("file", "", "read text to scan from a file instead of the argument")
}
