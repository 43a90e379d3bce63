package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowrelay/internal/relay"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Send one question to the chatflow and print the reply",
	Long: `Relays a single question exactly as the bots would and prints the text a
user would receive. Exits non-zero when the chatflow did not answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the result as JSON")
	rootCmd.AddCommand(askCmd)
}

type askResultJSON struct {
	RequestID  string `json:"request_id"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code,omitempty"`
	Text       string `json:"text"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be blank")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	adapter := newAdapter(cfg, logger)

	requestID := uuid.NewString()
	res := adapter.Ask(relay.ContextWithRequestID(cmd.Context(), requestID), question)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(askResultJSON{
			RequestID:  requestID,
			Outcome:    res.Outcome.String(),
			StatusCode: res.StatusCode,
			Text:       res.Text,
			ElapsedMS:  res.Elapsed.Milliseconds(),
		}); err != nil {
			return err
		}
	} else {
		fmt.Println(res.Text)
	}

	if !res.OK() {
		return fmt.Errorf("chatflow did not answer (%s)", res.Outcome)
	}
	return nil
}
