package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/dhcgn/arxiv2notion/config"
	"github.com/dhcgn/arxiv2notion/digest"
	"github.com/dhcgn/arxiv2notion/model"
	"github.com/dhcgn/arxiv2notion/notion"
	"github.com/dhcgn/arxiv2notion/runner"
)

const sampleDigest = "cs daily Subj-class mailing\n" +
	digest.BlockSeparator + "\n" +
	"\\\\\n" +
	"arXiv:2406.00001\n" +
	"Date: Mon, 3 Jun 2024 12:00:00 GMT   (25kb)\n" +
	"\n" +
	"Title: First Paper\n" +
	"Authors: A. Author\n" +
	"Categories: cs.LG\n" +
	"Comments: 8 pages\n" +
	"\\\\\n" +
	"  First abstract.\n" +
	"\\\\ ( https://arxiv.org/abs/2406.00001 ,  25kb)\n" +
	digest.BlockSeparator + "\n" +
	"\\\\\n" +
	"arXiv:2406.00002\n" +
	"Date: yesterday   (25kb)\n" +
	"\n" +
	"Title: Second Paper\n" +
	"\\\\\n" +
	"  Second abstract.\n" +
	"\\\\ ( https://arxiv.org/abs/2406.00002 ,  25kb)\n" +
	digest.BlockSeparator + "\n"

func clearNotionEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"NOTION_TOKEN", "NOTION_DATABASE_ID", "MAX_PAPERS", "LOG_DIR", "DRY_RUN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "arxiv2notion", SilenceUsage: true, SilenceErrors: true}
	if err := config.RegisterFlags(root); err != nil {
		t.Fatalf("RegisterFlags() error = %v", err)
	}
	root.AddCommand(NewParseCommand(), NewInitDBCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(append(args, "--env-file=", "--log-dir="))
	err := root.Execute()
	return out.String(), err
}

func decodePapers(t *testing.T, out string) []map[string]any {
	t.Helper()
	var papers []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var p map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		papers = append(papers, p)
	}
	return papers
}

func TestParseCommand_File(t *testing.T) {
	clearNotionEnv(t)
	path := filepath.Join(t.TempDir(), "digest.txt")
	if err := os.WriteFile(path, []byte(sampleDigest), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, nil, "parse", path)
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	papers := decodePapers(t, out)
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2: %s", len(papers), out)
	}
	if papers[0]["arxivID"] != "2406.00001" || papers[0]["comments"] != "8 pages" {
		t.Errorf("first paper = %v", papers[0])
	}
	if papers[0]["date"] != "2024-06-03T12:00:00Z" {
		t.Errorf("first paper date = %v", papers[0]["date"])
	}
	if papers[1]["date"] != nil || papers[1]["comments"] != nil {
		t.Errorf("second paper = %v, want null date and comments", papers[1])
	}
}

func TestParseCommand_StdinWithLimit(t *testing.T) {
	clearNotionEnv(t)
	out, err := execute(t, strings.NewReader(sampleDigest), "parse", "--max-papers=1")
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	papers := decodePapers(t, out)
	if len(papers) != 1 || papers[0]["arxivID"] != "2406.00001" {
		t.Errorf("papers = %v, want only the first", papers)
	}
}

func TestParseCommand_Mbox(t *testing.T) {
	clearNotionEnv(t)
	archive := "From no-reply@arxiv.org Tue Jun  4 04:00:00 2024\n" +
		"From: no-reply@arxiv.org\n" +
		"Subject: cs daily Subj-class mailing 100 1\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		sampleDigest +
		"\n" +
		"From other@example.com Tue Jun  4 05:00:00 2024\n" +
		"From: other@example.com\n" +
		"Subject: unrelated\n" +
		"\n" +
		sampleDigest
	path := filepath.Join(t.TempDir(), "inbox.mbox")
	if err := os.WriteFile(path, []byte(archive), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, nil, "parse", "--mbox", path)
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if n := len(decodePapers(t, out)); n != 2 {
		t.Errorf("got %d papers, want 2 from the matching digest only", n)
	}
}

func TestParseCommand_MboxNeedsPath(t *testing.T) {
	clearNotionEnv(t)
	if _, err := execute(t, strings.NewReader(""), "parse", "--mbox"); err == nil {
		t.Error("parse --mbox without a path should fail")
	}
}

func TestParseCommand_PublishRequiresCredentials(t *testing.T) {
	clearNotionEnv(t)
	path := filepath.Join(t.TempDir(), "digest.txt")
	if err := os.WriteFile(path, []byte(sampleDigest), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, nil, "parse", "--publish", path); err == nil {
		t.Error("parse --publish without NOTION_TOKEN should fail")
	}
}

func TestParseCommand_PublishDryRun(t *testing.T) {
	clearNotionEnv(t)
	path := filepath.Join(t.TempDir(), "digest.txt")
	if err := os.WriteFile(path, []byte(sampleDigest), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, nil, "parse", "--publish", "--dry-run", path)
	if err != nil {
		t.Fatalf("parse --publish --dry-run error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing printed when publishing", out)
	}
}

func TestParseCommand_MissingFile(t *testing.T) {
	clearNotionEnv(t)
	if _, err := execute(t, nil, "parse", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("parse of a missing file should fail")
	}
}

func TestInitDBCommand_RequiresToken(t *testing.T) {
	clearNotionEnv(t)
	if _, err := execute(t, nil, "init-db", "--page-id=abc"); err == nil {
		t.Error("init-db without NOTION_TOKEN should fail")
	}
}

type rejectingPublisher struct{}

func (rejectingPublisher) PublishAll(_ context.Context, papers []digest.Paper) notion.Result {
	return notion.Result{Failed: len(papers)}
}

func TestPublishEnvelopes_RejectedPapersFail(t *testing.T) {
	envelopes := []model.Envelope{{Digest: model.Digest{Subject: "digest", PlainText: sampleDigest}}}
	factory := func(context.Context) (runner.Publisher, error) {
		return rejectingPublisher{}, nil
	}

	err := publishEnvelopes(context.Background(), envelopes, 0, factory, nil)
	if err == nil {
		t.Fatal("publishEnvelopes() error = nil, want an error when every paper is rejected")
	}
	if !strings.Contains(err.Error(), "2 of 2 papers failed") {
		t.Errorf("publishEnvelopes() error = %v", err)
	}
}

func TestPublishEnvelopes_AllPublished(t *testing.T) {
	envelopes := []model.Envelope{{Digest: model.Digest{Subject: "digest", PlainText: sampleDigest}}}
	factory := func(context.Context) (runner.Publisher, error) {
		return notion.NewDryRunPublisher(nil), nil
	}

	if err := publishEnvelopes(context.Background(), envelopes, 0, factory, nil); err != nil {
		t.Errorf("publishEnvelopes() error = %v", err)
	}
}
