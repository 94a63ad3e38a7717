package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/config"
	"github.com/pders01/repo-mechanic/internal/github"
	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/research"
	"github.com/pders01/repo-mechanic/internal/session"
	"github.com/pders01/repo-mechanic/internal/testutil"
)

const testSessionDir = "/session"

// setupCommandTest points every command at memory filesystems and the
// given generator, and restores the package state afterwards.
func setupCommandTest(t *testing.T, gen llm.Generator) {
	t.Helper()

	viper.Reset()
	config.SetDefaults()
	viper.Set("session.dir", testSessionDir)
	viper.Set("research.phase_delay", 0)
	viper.Set("embeddings.enabled", false)

	oldSession, oldOutput, oldGen := sessionFs, outputFs, newGenerator
	sessionFs = afero.NewMemMapFs()
	outputFs = afero.NewMemMapFs()
	newGenerator = func(ctx context.Context, model string) (llm.Generator, error) {
		if gen == nil {
			return nil, errors.New("no generator in this test")
		}
		return gen, nil
	}

	askScope, chatScope, researchScope, wikiScope, filesScope = scopeFlags{}, scopeFlags{}, scopeFlags{}, scopeFlags{}, scopeFlags{}
	askAudio = ""
	rawOutput = true

	t.Cleanup(func() {
		sessionFs, outputFs, newGenerator = oldSession, oldOutput, oldGen
		viper.Reset()
	})
}

func installTestRepo(t *testing.T) *session.Store {
	t.Helper()
	store := openStore()
	repo := &models.RepositoryContext{
		Name:            "widgets",
		OriginReference: "https://github.com/acme/widgets",
		Kind:            models.KindGitHub,
		Files: []models.RepoFile{
			{Path: "main.go", Content: "package main"},
			{Path: "internal/auth/token.go", Content: "package auth"},
		},
	}
	if err := store.InstallRepository(repo); err != nil {
		t.Fatalf("failed to install repository: %v", err)
	}
	return store
}

func TestIngestCommand(t *testing.T) {
	setupCommandTest(t, nil)

	fake := testutil.NewFakeGitHub(t, "acme", "widgets")
	fake.AddFile("README.md", "# Widgets")
	fake.AddFile("main.go", "package main")
	viper.Set("github.api_url", fake.APIURL())
	viper.Set("github.raw_url", fake.RawURL())

	store := openStore()
	if err := store.Append(models.ModeRAG, models.UserMessage("stale question")); err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}

	if err := runIngest(nil, []string{"https://github.com/acme/widgets"}); err != nil {
		t.Fatalf("ingest command failed: %v", err)
	}

	store = openStore()
	repo := store.Repository()
	if repo == nil {
		t.Fatal("repository was not installed")
	}
	if repo.Name != "widgets" || len(repo.Files) != 2 {
		t.Errorf("unexpected repository %s with %d files", repo.Name, len(repo.Files))
	}
	if len(store.History(models.ModeRAG)) != 0 {
		t.Error("ingestion did not reset mode histories")
	}
}

func TestIngestFailureKeepsSession(t *testing.T) {
	setupCommandTest(t, nil)
	installTestRepo(t)

	fake := testutil.NewFakeGitHub(t, "acme", "missing")
	fake.MetadataStatus = 404
	viper.Set("github.api_url", fake.APIURL())
	viper.Set("github.raw_url", fake.RawURL())

	err := runIngest(nil, []string{"github.com/acme/missing"})
	if !errors.Is(err, github.ErrRepositoryNotFound) {
		t.Fatalf("expected ErrRepositoryNotFound, got %v", err)
	}
	if got := openStore().Repository().Name; got != "widgets" {
		t.Errorf("repository changed to %q after failed ingestion", got)
	}
}

func TestAskAppendsTurn(t *testing.T) {
	gen := testutil.NewFakeGenerator("It validates tokens.")
	setupCommandTest(t, gen)
	store := installTestRepo(t)
	if err := store.SetActiveMode(models.ModeRAG); err != nil {
		t.Fatal(err)
	}

	if err := runAsk(nil, []string{"what", "does", "auth", "do?"}); err != nil {
		t.Fatalf("ask command failed: %v", err)
	}

	history := openStore().History(models.ModeRAG)
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Content != "what does auth do?" || history[1].Content != "It validates tokens." {
		t.Errorf("unexpected history: %+v", history)
	}
	if len(openStore().History(models.ModeSimple)) != 0 {
		t.Error("another mode's history changed")
	}
}

func TestAskCollaboratorFailure(t *testing.T) {
	gen := testutil.NewFakeGenerator()
	gen.Default = testutil.Reply{Err: errors.New("connection reset")}
	setupCommandTest(t, gen)
	store := installTestRepo(t)
	if err := store.SetActiveMode(models.ModeSimple); err != nil {
		t.Fatal(err)
	}

	if err := runAsk(nil, []string{"hello"}); err != nil {
		t.Fatalf("collaborator failure should not fail the command: %v", err)
	}

	history := openStore().History(models.ModeSimple)
	if len(history) != 2 || history[1].Content != analysis.FailureMessage {
		t.Errorf("expected failure entry, got %+v", history)
	}
}

func TestAskRejections(t *testing.T) {
	setupCommandTest(t, testutil.NewFakeGenerator())
	store := installTestRepo(t)

	if err := runAsk(nil, []string{"hello"}); err == nil {
		t.Error("wiki_gen should not accept messages")
	}

	if err := store.SetActiveMode(models.ModeRAG); err != nil {
		t.Fatal(err)
	}
	askScope.filter = "nothing-matches"
	if err := runAsk(nil, []string{"hello"}); !errors.Is(err, analysis.ErrEmptyContext) {
		t.Errorf("expected ErrEmptyContext, got %v", err)
	}
	askScope.filter = ""

	if err := runAsk(nil, []string{"  "}); err == nil {
		t.Error("empty message should be rejected")
	}
	if n := len(openStore().History(models.ModeRAG)); n != 0 {
		t.Errorf("rejected messages left %d entries", n)
	}
}

func TestChatRequiresChatMode(t *testing.T) {
	setupCommandTest(t, testutil.NewFakeGenerator())
	installTestRepo(t)

	if err := runChat(nil, []string{"deep_research", "hi"}); err == nil {
		t.Error("deep_research should be rejected by chat")
	}
	if err := runChat(nil, []string{"bogus", "hi"}); err == nil {
		t.Error("unknown mode should be rejected")
	}
	if err := runChat(nil, []string{"backlog_steve", "ship", "it"}); err != nil {
		t.Fatalf("chat command failed: %v", err)
	}

	store := openStore()
	if store.ActiveMode() != models.ModePersona {
		t.Errorf("active mode = %s, want backlog_steve", store.ActiveMode())
	}
	// greeting, question, reply
	if n := len(store.History(models.ModePersona)); n != 3 {
		t.Errorf("expected 3 entries, got %d", n)
	}
}

func TestResearchCommand(t *testing.T) {
	gen := testutil.NewFakeGenerator("plan", "map", "analysis", "conclusion")
	setupCommandTest(t, gen)
	installTestRepo(t)

	if err := runResearch(nil, []string{"trace", "auth"}); err != nil {
		t.Fatalf("research command failed: %v", err)
	}

	store := openStore()
	if store.ActiveMode() != models.ModeResearch {
		t.Errorf("active mode = %s, want deep_research", store.ActiveMode())
	}
	history := store.History(models.ModeResearch)
	if len(history) != 5 {
		t.Fatalf("expected objective and 4 phases, got %d entries", len(history))
	}
	if history[0].Content != "trace auth" || history[4].PhaseNumber != 4 {
		t.Errorf("unexpected history: %+v", history)
	}
	if got := store.Progress(models.ModeResearch); got != 4 {
		t.Errorf("progress = %d, want 4", got)
	}
}

func TestResearchAbortKeepsCompletedPhases(t *testing.T) {
	gen := testutil.NewFakeGenerator("plan")
	gen.Default = testutil.Reply{Err: errors.New("quota")}
	setupCommandTest(t, gen)
	installTestRepo(t)

	if err := runResearch(nil, []string{"trace auth"}); err == nil {
		t.Fatal("expected research to abort")
	}

	store := openStore()
	history := store.History(models.ModeResearch)
	if len(history) != 3 {
		t.Fatalf("expected objective, phase 1 and failure entry, got %d", len(history))
	}
	if store.Progress(models.ModeResearch) != 1 {
		t.Errorf("progress = %d, want 1", store.Progress(models.ModeResearch))
	}
}

func TestResearchStoreFailureIsNotAPhaseFailure(t *testing.T) {
	gen := testutil.NewFakeGenerator("plan", "map", "analysis", "conclusion")
	setupCommandTest(t, gen)
	installTestRepo(t)

	sessionFs = afero.NewReadOnlyFs(sessionFs)
	store := openStore()

	err := runResearchPipeline(context.Background(), store, gen, "", store.Repository(), "trace auth")
	if err == nil {
		t.Fatal("expected research to fail on a read-only session")
	}
	if errors.Is(err, llm.ErrCollaborator) {
		t.Errorf("store failure reported as collaborator failure: %v", err)
	}
	if notice := abortNotice(err); notice != "" {
		t.Errorf("abortNotice() = %q, want none", notice)
	}
	if n := len(gen.Calls()); n != 0 {
		t.Errorf("generator called %d times", n)
	}
	if n := len(store.History(models.ModeResearch)); n != 0 {
		t.Errorf("history has %d entries, want none", n)
	}
}

func TestAbortNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"phase failure", fmt.Errorf("phase 2 (STRUCTURAL_MAPPING) failed: %w", llm.ErrCollaborator), research.FailureMessage},
		{"store failure", errors.New("failed to write session: read-only file system"), ""},
		{"invalid input", errors.New("no repository files to research"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := abortNotice(tt.err); got != tt.want {
				t.Errorf("abortNotice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModeCommand(t *testing.T) {
	setupCommandTest(t, nil)

	if err := runMode(nil, nil); err != nil {
		t.Fatalf("listing modes failed: %v", err)
	}
	if err := runMode(nil, []string{"backlog_steve"}); err != nil {
		t.Fatalf("switching mode failed: %v", err)
	}
	store := openStore()
	if store.ActiveMode() != models.ModePersona {
		t.Errorf("active mode = %s", store.ActiveMode())
	}
	if n := len(store.History(models.ModePersona)); n != 1 {
		t.Errorf("expected persona greeting, got %d entries", n)
	}

	// Switching back and forth does not seed twice
	if err := runMode(nil, []string{"rag_chat"}); err != nil {
		t.Fatal(err)
	}
	if err := runMode(nil, []string{"backlog_steve"}); err != nil {
		t.Fatal(err)
	}
	if n := len(openStore().History(models.ModePersona)); n != 1 {
		t.Errorf("greeting seeded again: %d entries", n)
	}

	if err := runMode(nil, []string{"chaos"}); err == nil {
		t.Error("unknown mode should be rejected")
	}
}

func TestSessionExportImport(t *testing.T) {
	setupCommandTest(t, nil)
	store := installTestRepo(t)
	if err := store.Append(models.ModeSimple, models.UserMessage("q"), models.AssistantMessage("a")); err != nil {
		t.Fatal(err)
	}
	if err := openSettings().Save(session.Settings{SelectedModel: "gemini-2.5-pro", GitHubToken: "ghp_secret"}); err != nil {
		t.Fatal(err)
	}

	exportOutput, exportIncludeToken = "/out/session.json", false
	if err := runSessionExport(nil, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := afero.ReadFile(outputFs, "/out/session.json")
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	if strings.Contains(string(data), "ghp_secret") {
		t.Error("token leaked into archive")
	}

	resetForce = true
	if err := runSessionReset(nil, nil); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	resetForce = false
	if openStore().Repository() != nil {
		t.Fatal("reset kept the repository")
	}

	importKeepSettings = false
	if err := runSessionImport(nil, []string{"/out/session.json"}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	store = openStore()
	if store.Repository() == nil || store.Repository().Name != "widgets" {
		t.Error("repository not restored")
	}
	if n := len(store.History(models.ModeSimple)); n != 2 {
		t.Errorf("expected 2 simple_chat entries, got %d", n)
	}
	settings := openSettings().Get()
	if settings.GitHubToken != "ghp_secret" {
		t.Error("import of a redacted archive dropped the local token")
	}
	if settings.SelectedModel != "gemini-2.5-pro" {
		t.Errorf("selected model = %q", settings.SelectedModel)
	}
}

func TestSessionImportInvalidChangesNothing(t *testing.T) {
	setupCommandTest(t, nil)
	installTestRepo(t)
	before := openStore().Snapshot()

	if err := afero.WriteFile(outputFs, "/bad.json", []byte(`{"repositoryContext": "nope"}`), 0644); err != nil {
		t.Fatal(err)
	}
	err := runSessionImport(nil, []string{"/bad.json"})
	if !errors.Is(err, session.ErrImportFormatInvalid) {
		t.Fatalf("expected ErrImportFormatInvalid, got %v", err)
	}
	if !strings.HasPrefix(userMessage(err), "Failed to import session archive") {
		t.Errorf("unexpected user message %q", userMessage(err))
	}

	after := openStore().Snapshot()
	if !after.Timestamp.Equal(before.Timestamp) || after.RepositoryContext.Name != before.RepositoryContext.Name {
		t.Error("rejected import changed the session")
	}
}

func TestSessionResetDryRun(t *testing.T) {
	setupCommandTest(t, nil)
	installTestRepo(t)

	resetForce = false
	if err := runSessionReset(nil, nil); err != nil {
		t.Fatal(err)
	}
	if openStore().Repository() == nil {
		t.Error("dry run discarded the repository")
	}
}

func TestWikiGenerateShowExport(t *testing.T) {
	outline := `<wiki_structure>
  <title>Widgets</title>
  <sections><section id="s1"><title>Core</title><pages><page_ref>p1</page_ref></pages></section></sections>
  <pages>
    <page id="p1"><title>Entry</title><related_pages><related>p9</related></related_pages></page>
    <page id="p2"><title>Auth</title></page>
  </pages>
</wiki_structure>`
	gen := testutil.NewFakeGenerator(outline)
	gen.Diagram = "graph TD\nA-->B"
	setupCommandTest(t, gen)
	installTestRepo(t)

	if err := runWikiShow(nil, nil); err == nil {
		t.Error("show before generate should fail")
	}
	if err := runWikiGenerate(nil, nil); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := runWikiShow(nil, nil); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if err := runWikiPage(nil, []string{"p1"}); err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if err := runWikiPage(nil, []string{"p9"}); err == nil {
		t.Error("missing page should be an error")
	}

	wikiExportFormat, wikiExportOutput, wikiExportDiagrams = "md", "/out/wiki.md", true
	if err := runWikiExport(nil, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := afero.ReadFile(outputFs, "/out/wiki.md")
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	for _, want := range []string{"# Widgets", `<a name="p2">`, "```mermaid\ngraph TD\nA-->B\n```"} {
		if !strings.Contains(md, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if got := len(gen.DiagramSources()); got != 2 {
		t.Errorf("expected 2 diagrams, got %d", got)
	}
}

func TestReportCommand(t *testing.T) {
	setupCommandTest(t, nil)
	store := installTestRepo(t)

	reportOutput = "/out/report.md"
	if err := runReport(nil, []string{"research"}); err == nil {
		t.Error("research report without research should fail")
	}
	if err := runReport(nil, []string{"backlog"}); err == nil {
		t.Error("backlog report without backlog should fail")
	}
	if err := runReport(nil, []string{"weekly"}); err == nil {
		t.Error("unknown template should fail")
	}

	reply := "Some ranting.\n\n### 📗 The Backlog (Sanitized):\n> **Login**\n\n### 🏅 What a Lead Dev Might Say:\nfine"
	if err := store.Append(models.ModePersona, models.UserMessage("notes"), models.AssistantMessage(reply)); err != nil {
		t.Fatal(err)
	}
	if err := runReport(nil, []string{"backlog"}); err != nil {
		t.Fatalf("backlog report failed: %v", err)
	}
	data, err := afero.ReadFile(outputFs, "/out/report.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Sanitized Backlog - widgets") || strings.Contains(string(data), "Some ranting") {
		t.Errorf("unexpected backlog document:\n%s", data)
	}
}

func TestHistoryExport(t *testing.T) {
	setupCommandTest(t, nil)
	store := installTestRepo(t)
	if err := store.Append(models.ModeRAG, models.UserMessage("q"), models.AssistantMessage("the answer")); err != nil {
		t.Fatal(err)
	}

	historyEntry, historyExport, historyOutput = -1, true, "/out/entry.md"
	defer func() { historyEntry, historyExport, historyOutput = -1, false, "" }()

	if err := runHistory(nil, []string{"rag_chat"}); err != nil {
		t.Fatalf("history export failed: %v", err)
	}
	data, err := afero.ReadFile(outputFs, "/out/entry.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Entry: 1") || !strings.Contains(string(data), "the answer") {
		t.Errorf("unexpected document:\n%s", data)
	}
}

func TestSearchCommandKeywordOnly(t *testing.T) {
	setupCommandTest(t, nil)
	store := installTestRepo(t)
	if err := store.Append(models.ModeRAG, models.UserMessage("how are tokens refreshed?"), models.AssistantMessage("## Tokens\nrefreshed hourly")); err != nil {
		t.Fatal(err)
	}

	searchMode, searchLimit = "", 10
	if err := runSearch(nil, []string{"tokens"}); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	searchMode = "bogus"
	if err := runSearch(nil, []string{"tokens"}); err == nil {
		t.Error("unknown mode should be rejected")
	}
	searchMode = ""
}

func TestSettingsCommand(t *testing.T) {
	setupCommandTest(t, nil)

	settingsModel, settingsToken = "gemini-2.5-pro", "ghp_abcdefgh1234"
	defer func() { settingsModel, settingsToken, settingsClearToken = "", "", false }()
	if err := runSettings(nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := openSettings().Get(); got.SelectedModel != "gemini-2.5-pro" || got.GitHubToken != "ghp_abcdefgh1234" {
		t.Errorf("settings not saved: %+v", got)
	}
	if got := selectedModel(openSettings().Get()); got != "gemini-2.5-pro" {
		t.Errorf("selectedModel = %q", got)
	}

	settingsModel, settingsToken, settingsClearToken = "", "", true
	if err := runSettings(nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := openSettings().Get().GitHubToken; got != "" {
		t.Errorf("token not cleared: %q", got)
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"ghp_abcdefgh1234", "ghp_********1234"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPickEntry(t *testing.T) {
	history := []models.ChatMessage{
		models.UserMessage("q1"),
		models.AssistantMessage("a1"),
		models.UserMessage("q2"),
	}

	tests := []struct {
		name    string
		history []models.ChatMessage
		index   int
		want    int
		wantErr bool
	}{
		{"latest reply", history, -1, 1, false},
		{"explicit", history, 2, 2, false},
		{"out of range", history, 3, 0, true},
		{"empty", nil, -1, 0, true},
		{"no replies", history[:1], -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := pickEntry(tt.history, tt.index)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("index = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	verbose = false
	tests := []struct {
		err  error
		want string
	}{
		{github.ErrRateLimited, "GitHub rate limit exceeded"},
		{github.ErrRepositoryNotFound, "Repository not found"},
		{analysis.ErrEmptyContext, "No files match the current filter"},
		{errors.New("plain failure"), "plain failure"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); !strings.HasPrefix(got, tt.want) {
			t.Errorf("userMessage(%v) = %q, want prefix %q", tt.err, got, tt.want)
		}
	}
}

func TestCollectStats(t *testing.T) {
	snap := models.NewSnapshot("s1")
	snap.RepositoryContext = &models.RepositoryContext{
		Name: "widgets",
		Files: []models.RepoFile{
			{Path: "a.go", Content: "1234"},
			{Path: "b.go", Content: "12"},
			{Path: "README.md", Content: "#"},
			{Path: "Makefile", Content: ""},
		},
	}
	snap.ModeStates[models.ModeRAG].History = []models.ChatMessage{models.UserMessage("q"), models.AssistantMessage("a")}

	stats := collectStats(snap, 4)
	if stats.Files != 4 || stats.Bytes != 7 {
		t.Errorf("files=%d bytes=%d", stats.Files, stats.Bytes)
	}
	if stats.TopTypes[0].Extension != ".go" || stats.TopTypes[0].Count != 2 {
		t.Errorf("top type = %+v", stats.TopTypes[0])
	}
	if len(stats.Modes) != len(models.Modes()) {
		t.Fatalf("expected a row per mode, got %d", len(stats.Modes))
	}
	rag := stats.Modes[models.ModeRAG]
	if rag.Entries != 2 || rag.User != 1 {
		t.Errorf("rag_chat stats = %+v", rag)
	}
}

func TestSessionPathsUseConfiguredDir(t *testing.T) {
	setupCommandTest(t, nil)
	store := openStore()
	if err := store.SetActiveMode(models.ModeSimple); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(sessionFs, filepath.Join(testSessionDir, session.SnapshotFile)); !ok {
		t.Error("snapshot not written to the session directory")
	}
}
