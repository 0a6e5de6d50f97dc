package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"quizwhiz-service/internal/config"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/session"

	"github.com/spf13/cobra"
)

// NewPlayCmd runs an interactive quiz session in the terminal against the
// same engine the server uses.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		player     string
		category   string
		categoryID int
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, player, category, categoryID, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&player, "player", "player@local", "player id (email)")
	cmd.Flags().StringVar(&category, "category", "Any Category", "category name stored with the result")
	cmd.Flags().IntVar(&categoryID, "category-id", 0, "trivia source category id (0 for any)")
	return cmd
}

func runPlay(ctx context.Context, configPath, player, category string, categoryID int, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	service, cleanup, err := buildGameService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := service.NewSession(ctx, player, category, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			fmt.Fprintln(out, "Could not fetch questions; try again later.")
		}
		return err
	}
	defer sess.Close()

	events, cancel := sess.Subscribe()
	defer cancel()

	lines := readLines(in)

	if err := sess.Start(); err != nil {
		return err
	}

	var options []string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			option, valid := optionForLetter(options, line)
			if !valid {
				fmt.Fprintf(out, "Enter a letter A-%c.\n", 'A'+len(options)-1)
				continue
			}
			if _, err := sess.Submit(option); err != nil && !errors.Is(err, domain.ErrAlreadyAnswered) {
				fmt.Fprintf(out, "Answer not accepted: %v\n", err)
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			switch event.Type {
			case session.EventQuestion:
				options = event.Snapshot.Options
				printQuestion(out, event.Snapshot)
			case session.EventTick:
				if event.Snapshot.TimeLeft == 5 {
					fmt.Fprintln(out, "5 seconds left!")
				}
			case session.EventAnswer:
				printAnswer(out, event)
			case session.EventResults:
				printResults(out, event.Snapshot)
				return nil
			}
		}
	}
}

// readLines forwards trimmed stdin lines; the channel closes on EOF.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return lines
}

func optionForLetter(options []string, line string) (string, bool) {
	letter := strings.ToUpper(strings.TrimSpace(line))
	if len(letter) != 1 || len(options) == 0 {
		return "", false
	}
	index := int(letter[0] - 'A')
	if index < 0 || index >= len(options) {
		return "", false
	}
	return options[index], true
}

func printQuestion(out io.Writer, snap session.Snapshot) {
	fmt.Fprintf(out, "\nQuestion %d/%d (%ds): %s\n", snap.QuestionIndex+1, snap.QuestionCount, snap.TimeLeft, snap.QuestionText)
	for i, option := range snap.Options {
		fmt.Fprintf(out, "  %c. %s\n", 'A'+i, option)
	}
	fmt.Fprint(out, "> ")
}

func printAnswer(out io.Writer, event session.Event) {
	answer := event.Answer
	switch {
	case answer == nil:
		return
	case answer.ChosenOption == nil:
		fmt.Fprintf(out, "Time's up! The answer was %s.\n", answer.CorrectOption)
	case answer.IsCorrect:
		fmt.Fprintf(out, "Correct! +%d points.\n", domain.PointsPerCorrect)
	default:
		fmt.Fprintf(out, "Wrong. The answer was %s.\n", answer.CorrectOption)
	}
}

func printResults(out io.Writer, snap session.Snapshot) {
	fmt.Fprintf(out, "\nQuiz completed! Score: %d  Correct: %d/%d  Accuracy: %d%%\n",
		snap.Score, snap.CorrectCount, snap.QuestionCount, snap.Accuracy)
}
