package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deepresearch/internal/llm"
	"deepresearch/internal/research"
)

var flagQuestions int

var feedbackCmd = &cobra.Command{
	Use:   "feedback [topic]",
	Short: "Print clarifying questions for a topic before researching it",
	Long: `Asks the model what it would need to know to research the topic well.
Useful for sharpening a vague topic before spending a full run on it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")

		ctx, cancel := signalContext()
		defer cancel()

		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}

		planner := research.NewPlanner(client)
		questions, err := planner.FeedbackQuestions(ctx, topic, flagQuestions)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			fmt.Println("The topic is clear enough; no clarifying questions.")
			return nil
		}
		for i, q := range questions {
			fmt.Printf("%d. %s\n", i+1, q)
		}
		return nil
	},
}

func init() {
	feedbackCmd.Flags().IntVarP(&flagQuestions, "questions", "n", 3, "maximum number of questions")
}
