package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/matching"
)

const PromptBack = "back"

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a person's rated skills to occupation categories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMatch(cmd)
	},
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Match a person's skills against one occupation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSkills(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(skillsCmd)

	for _, c := range []*cobra.Command{matchCmd, skillsCmd} {
		c.Flags().StringP("person", "p", "", "person id")
		c.Flags().StringSlice("rating", nil, "ad-hoc rating as skillId=value (0..5), skips the aptitude database")
		c.MarkFlagRequired("person")
	}

	matchCmd.Flags().StringSliceP("occupation", "o", nil, "restrict to these occupation category ids")
	matchCmd.Flags().Float64("threshold", matching.DefaultThresholdScore, "minimum normalized score")
	matchCmd.Flags().Bool("light", false, "omit sub-occupations")
	matchCmd.Flags().BoolP("interactive", "i", false, "choose a category to inspect its skills")

	skillsCmd.Flags().StringP("occupation", "o", "", "occupation id")
	skillsCmd.MarkFlagRequired("occupation")
}

func runMatch(cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	eng, log, done, err := cliEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	person, _ := cmd.Flags().GetString("person")
	occupations, _ := cmd.Flags().GetStringSlice("occupation")
	light, _ := cmd.Flags().GetBool("light")
	interactive, _ := cmd.Flags().GetBool("interactive")

	query := engine.OccupationQuery{
		PersonID:      person,
		OccupationIDs: occupations,
		Light:         light,
	}
	if cmd.Flags().Changed("threshold") {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		query.ThresholdScore = &threshold
	}

	matchings, err := eng.MatchOccupationsForPerson(ctx, query)
	if err != nil {
		return err
	}

	log.Info("occupation matchings", zap.Int("count", len(matchings)))

	if !interactive {
		return printJSON(cmd.OutOrStdout(), matchings)
	}

	return drillDown(ctx, cmd.OutOrStdout(), eng, person, matchings)
}

// drillDown lets the user pick categories and prints the skill matching of each.
func drillDown(ctx context.Context, out io.Writer, eng engine.Engine, person string, matchings []matching.OccupationMatching) error {
	if len(matchings) == 0 {
		fmt.Fprintln(out, "no occupations matched")
		return nil
	}

	items := make([]string, 0, len(matchings)+1)
	byLabel := make(map[string]string, len(matchings))
	for _, m := range matchings {
		label := fmt.Sprintf("%.4f %s (%s)", m.Score, m.CategoryName, m.CategoryID)
		items = append(items, label)
		byLabel[label] = m.CategoryID
	}
	items = append(items, PromptBack)

	for {
		categoryPrompt := promptui.Select{
			Label: "Choose a category and press ENTER",
			Items: items,
			Size:  10,
		}

		_, selected, err := categoryPrompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}
		if selected == PromptBack {
			return nil
		}

		skills, err := eng.MatchSkillsForPersonAndOccupation(ctx, person, byLabel[selected])
		if err != nil {
			return err
		}
		if err := printJSON(out, skills); err != nil {
			return err
		}
	}
}

func runSkills(cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	eng, _, done, err := cliEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	person, _ := cmd.Flags().GetString("person")
	occupation, _ := cmd.Flags().GetString("occupation")

	skills, err := eng.MatchSkillsForPersonAndOccupation(ctx, person, occupation)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), skills)
}

// cliEngine builds an engine for one-shot commands. --rating replaces the database.
func cliEngine(ctx context.Context, cmd *cobra.Command) (engine.Engine, *zap.Logger, func(), error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	config, err := getConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	var store aptitude.Store
	if raw, _ := cmd.Flags().GetStringSlice("rating"); len(raw) > 0 {
		person, _ := cmd.Flags().GetString("person")
		ratings, err := parseRatings(raw)
		if err != nil {
			return nil, nil, nil, err
		}
		store = aptitude.StaticStore{person: ratings}
	}

	eng, closeEngine, err := buildEngine(ctx, config, log, nil, store)
	if err != nil {
		return nil, nil, nil, err
	}

	return eng, log, func() {
		closeEngine()
		_ = log.Sync()
	}, nil
}

func parseRatings(raw []string) ([]aptitude.SkillRating, error) {
	ratings := make([]aptitude.SkillRating, 0, len(raw))
	for _, r := range raw {
		id, value, ok := strings.Cut(r, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid rating %q, expected skillId=value", r)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || v < aptitude.MinRating || v > aptitude.MaxRating {
			return nil, fmt.Errorf("invalid rating value in %q, expected a number between %d and %d", r, aptitude.MinRating, aptitude.MaxRating)
		}
		ratings = append(ratings, aptitude.SkillRating{SkillID: id, Value: v})
	}
	return ratings, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
