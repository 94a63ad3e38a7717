package cmd

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/session"
)

var (
	askScope scopeFlags
	askAudio string
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send a message to the active mode",
	Long: `Send a message to the active mode and print the reply.

  rag_chat, simple_chat, backlog_steve  append a turn to the mode's history
  deep_research                         restart research with the message as objective
  wiki_gen                              not conversational; use 'repomech wiki generate'

With --audio the recording is transcribed and the transcript is sent
(Gemini backend only).

Examples:
  repomech ask "How is the session persisted?"
  repomech ask --filter internal/ "Where are errors classified?"
  repomech ask --audio notes.wav`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askScope.register(askCmd)
	askCmd.Flags().StringVar(&askAudio, "audio", "", "Transcribe this audio file and send the transcript")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store := openStore()
	return sendMessage(ctx, store, store.ActiveMode(), strings.Join(args, " "), askAudio, &askScope)
}

// sendMessage routes text to mode. Chat modes append a turn; research
// restarts the pipeline.
func sendMessage(ctx context.Context, store *session.Store, mode models.Mode, text, audioPath string, scope *scopeFlags) error {
	if mode == models.ModeWiki {
		return fmt.Errorf("%s does not take messages (use: repomech wiki generate)", mode)
	}

	derived, err := scope.derive(store)
	if err != nil {
		return err
	}

	settings := openSettings().Get()
	svc, gen, err := newAnalysis(ctx, store, settings)
	if err != nil {
		return err
	}

	if audioPath != "" {
		transcript, err := transcribeFile(ctx, svc, audioPath)
		if err != nil {
			return err
		}
		fmt.Println(dimStyle.Render("Transcript: " + transcript))
		text = strings.TrimSpace(text + " " + transcript)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message is required (provide as argument or use --audio)")
	}

	if mode == models.ModeResearch {
		return runResearchPipeline(ctx, store, gen, selectedModel(settings), derived, text)
	}

	if mode == models.ModePersona {
		if _, err := analysis.SeedPersona(store); err != nil {
			return fmt.Errorf("failed to seed persona: %w", err)
		}
	}

	stop := startSpinner(fmt.Sprintf("Analyzing %d files...", len(derived.Files)))
	reply, err := svc.Chat(ctx, mode, derived, text)
	stop()
	if err != nil {
		if errors.Is(err, llm.ErrCollaborator) {
			fmt.Println(analysis.FailureMessage)
			warnf("%v", err)
			return nil
		}
		return err
	}

	renderMarkdown(reply)
	return nil
}

func transcribeFile(ctx context.Context, svc *analysis.Service, path string) (string, error) {
	audio, err := afero.ReadFile(outputFs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	stop := startSpinner("Transcribing...")
	defer stop()
	return svc.Transcribe(ctx, audio, mimeType)
}
