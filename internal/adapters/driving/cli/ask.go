package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

var (
	askScope        string
	askConversation string
	askJSON         bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question of the knowledge base",
	Long: `Answers a question from the ingested documents, citing them as [Source N].

The answer streams to the terminal as it is generated. Pass --conversation
with the ID printed after an answer to ask a follow-up in the same
conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askScope, "scope", "", "only use artifacts in this scope")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "continue an existing conversation")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// askJSONResult is the JSON form of a chat turn.
type askJSONResult struct {
	ConversationID    string       `json:"conversationId"`
	Answer            string       `json:"answer"`
	Confidence        float64      `json:"confidence"`
	Sources           []sourceJSON `json:"sources"`
	RetrievalDegraded bool         `json:"retrievalDegraded,omitempty"`
	GenerationFailed  bool         `json:"generationFailed,omitempty"`
}

type sourceJSON struct {
	Index         int     `json:"index"`
	ArtifactID    string  `json:"artifactId"`
	ArtifactTitle string  `json:"artifactTitle"`
	Similarity    float64 `json:"similarity"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Chat == nil {
		return errors.New("chat service not configured")
	}

	req := driving.AskRequest{
		ConversationID: askConversation,
		Question:       args[0],
		ScopeID:        askScope,
	}

	streamed := false
	if !askJSON {
		req.OnToken = func(token string) error {
			streamed = true
			_, err := fmt.Fprint(cmd.OutOrStdout(), token)
			return err
		}
	}

	reply, err := svc.Chat.Ask(commandContext(cmd), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, askJSONFrom(reply))
	}

	out := cmd.OutOrStdout()
	if !streamed && reply.Answer != nil {
		fmt.Fprint(out, reply.Answer.Message)
	}
	fmt.Fprintln(out)

	if reply.Answer != nil && len(reply.Answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, src := range reply.Answer.Sources {
			fmt.Fprintf(out, "  [%d] %s (%.2f)\n", i+1, src.ArtifactTitle(), src.Similarity())
		}
	}

	switch {
	case reply.GenerationFailed:
		fmt.Fprintln(out, "\nNote: the answer could not be generated. Check 'kacey settings show'.")
	case reply.RetrievalDegraded:
		fmt.Fprintln(out, "\nNote: the knowledge base could not be searched; this answer is not grounded.")
	}

	if reply.Conversation != nil {
		fmt.Fprintf(out, "\nConversation: %s\n", reply.Conversation.ID)
	}
	return nil
}

func askJSONFrom(reply *domain.ChatReply) askJSONResult {
	out := askJSONResult{
		Sources:           []sourceJSON{},
		RetrievalDegraded: reply.RetrievalDegraded,
		GenerationFailed:  reply.GenerationFailed,
	}
	if reply.Conversation != nil {
		out.ConversationID = reply.Conversation.ID
	}
	if reply.Answer != nil {
		out.Answer = reply.Answer.Message
		out.Confidence = reply.Answer.Confidence
		for i, src := range reply.Answer.Sources {
			out.Sources = append(out.Sources, sourceJSON{
				Index:         i + 1,
				ArtifactID:    src.String(domain.MetaArtifactID),
				ArtifactTitle: src.ArtifactTitle(),
				Similarity:    src.Similarity(),
			})
		}
	}
	return out
}
