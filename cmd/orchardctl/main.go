// Package main is orchardctl, the command-line front end for the Orchard
// document core: project roots, tree listing, document read/write, the
// git-backed history operations, and a watch mode that mirrors filesystem
// changes onto the event stream.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/orcharddocs/orchard/internal/config"
	"github.com/orcharddocs/orchard/internal/docs"
	"github.com/orcharddocs/orchard/internal/doctree"
	"github.com/orcharddocs/orchard/internal/events"
	"github.com/orcharddocs/orchard/internal/gitsync"
	"github.com/orcharddocs/orchard/internal/logging"
	"github.com/orcharddocs/orchard/internal/metrics"
	"github.com/orcharddocs/orchard/internal/projectstore"
	"github.com/orcharddocs/orchard/internal/repolock"
	"github.com/orcharddocs/orchard/internal/watcher"
	"github.com/orcharddocs/orchard/internal/workspace"
)

const (
	autoCommitDelay   = 2 * time.Second
	autoCommitMessage = "orchard autosave"
)

type app struct {
	cfg     *config.Config
	store   projectstore.Store
	service *docs.Service
	bc      *events.Broadcaster
	locks   *repolock.Registry

	repo       string
	user       string
	jsonOut    bool
	autoCommit bool
}

func main() {
	repoFlag := flag.String("repo", ".", "Path inside the repository to operate on")
	userFlag := flag.String("user", "", "Owner recorded on newly created projects")
	jsonFlag := flag.Bool("json", false, "Emit JSON instead of text")
	expandFlag := flag.String("expand", "", "Comma-separated folders to expand (tree)")
	limitFlag := flag.Int("limit", 20, "Number of commits to show (log)")
	pathFlag := flag.String("path", "", "Restrict log to one document path")
	messageFlag := flag.String("m", "", "Commit message (commit)")
	autoCommitFlag := flag.Bool("auto-commit", false, "Commit document changes automatically (watch)")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	store, err := projectstore.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening project store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	bc := events.NewBroadcaster()
	a := &app{
		cfg:        cfg,
		store:      store,
		service:    docs.New(cfg, bc),
		bc:         bc,
		locks:      repolock.NewRegistry(),
		repo:       *repoFlag,
		user:       *userFlag,
		jsonOut:    *jsonFlag,
		autoCommit: *autoCommitFlag,
	}

	ctx := context.Background()
	cmd, cmdArgs := args[0], args[1:]

	switch cmd {
	case "roots":
		a.cmdRoots(ctx, cmdArgs)
	case "tree":
		a.cmdTree(ctx, *expandFlag)
	case "suggest":
		a.cmdSuggest(ctx)
	case "cat":
		a.cmdCat(ctx, cmdArgs)
	case "write":
		a.cmdWrite(ctx, cmdArgs)
	case "status":
		a.cmdStatus(ctx)
	case "log":
		a.cmdLog(ctx, *limitFlag, *pathFlag)
	case "commit":
		a.cmdCommit(ctx, *messageFlag, cmdArgs)
	case "push":
		a.cmdPush(ctx)
	case "pull":
		a.cmdPull(ctx)
	case "watch":
		a.cmdWatch(ctx)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`orchardctl - git-backed document workspace

Usage: orchardctl [flags] <command> [args]

Flags:
  -repo <path>     Path inside the repository (default: current directory)
  -user <id>       Owner recorded on newly created projects
  -json            Emit JSON instead of text
  -expand <paths>  Comma-separated folders to expand (tree)
  -limit <n>       Number of commits to show (log, default 20)
  -path <path>     Restrict log to one document path
  -m <message>     Commit message (commit)
  -auto-commit     Commit document changes automatically (watch)

Commands:
  roots add <path>   Add a documentation folder to the project
  roots rm <path>    Remove a documentation folder
  roots ls           Show the project and its folders
  tree               List the visible document tree
  suggest            Suggest documentation folders in the repository
  cat <path>         Print a document
  write <path>       Write a document from stdin
  status             Show branch and working tree state
  log                Show commit history
  commit [paths...]  Commit document changes
  push               Push to the remote
  pull               Pull from the remote
  watch              Mirror filesystem changes onto the event stream
  help               Show this help message

Examples:
  orchardctl roots add ./docs
  orchardctl -expand /docs tree
  orchardctl -json status
  orchardctl -m "update roadmap" commit /docs/roadmap.md
  orchardctl -auto-commit watch`)
}

// fail prints the stable error code with the user-facing message and exits.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", docs.ErrorCodeOf(err), err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err)
	}
}

// resolveProject locates the project record for the repository enclosing
// the -repo path. When no record exists yet an unsaved one is synthesized;
// roots add persists it.
func (a *app) resolveProject(ctx context.Context) *projectstore.Project {
	handle, err := a.service.Resolve(ctx, a.repo)
	if err != nil {
		fail(err)
	}
	if handle.RepoRoot == "" {
		fail(workspace.ErrNotGitRepo)
	}
	p, err := a.store.GetByRepoRoot(ctx, handle.RepoRoot)
	if errors.Is(err, projectstore.ErrNotFound) {
		return &projectstore.Project{
			Name:      filepath.Base(handle.RepoRoot),
			UserID:    a.user,
			RepoRoot:  handle.RepoRoot,
			Branch:    handle.Branch,
			RemoteURL: handle.RemoteURL,
		}
	}
	if err != nil {
		fail(err)
	}
	return p
}

// projectState renders the record as workspace state. The repository
// binding is only asserted once roots exist; an empty project accepts its
// first folder from any repository the -repo path resolves into.
func projectState(p *projectstore.Project) workspace.State {
	st := workspace.State{Roots: p.RootPaths}
	if len(p.RootPaths) > 0 {
		st.RepoRoot = p.RepoRoot
	}
	return st
}

func (a *app) saveProject(ctx context.Context, p *projectstore.Project) {
	if err := a.store.Put(ctx, p); err != nil {
		fail(err)
	}
}

func (a *app) cmdRoots(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: orchardctl roots add|rm|ls [path]")
		os.Exit(1)
	}
	switch args[0] {
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: orchardctl roots add <path>")
			os.Exit(1)
		}
		p := a.resolveProject(ctx)
		state, handle, err := a.service.AddFolder(ctx, projectState(p), args[1])
		if err != nil {
			fail(err)
		}
		p.RootPaths = state.Roots
		p.Branch = handle.Branch
		p.RemoteURL = handle.RemoteURL
		a.saveProject(ctx, p)
		a.printProject(p)
	case "rm", "remove":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: orchardctl roots rm <path>")
			os.Exit(1)
		}
		p := a.resolveProject(ctx)
		state, err := a.service.RemoveFolder(projectState(p), args[1])
		if err != nil {
			fail(err)
		}
		p.RootPaths = state.Roots
		a.saveProject(ctx, p)
		a.printProject(p)
	case "ls", "list":
		a.printProject(a.resolveProject(ctx))
	default:
		fmt.Fprintf(os.Stderr, "Unknown roots command: %s\n", args[0])
		os.Exit(1)
	}
}

func (a *app) printProject(p *projectstore.Project) {
	if a.jsonOut {
		printJSON(p)
		return
	}
	id := p.ID
	if id == "" {
		id = "unsaved"
	}
	fmt.Printf("Project:    %s (%s)\n", p.Name, id)
	fmt.Printf("Repository: %s\n", p.RepoRoot)
	if p.Branch != "" {
		fmt.Printf("Branch:     %s\n", p.Branch)
	}
	if len(p.RootPaths) == 0 {
		fmt.Println("No document roots configured")
		return
	}
	fmt.Println("Roots:")
	for _, r := range p.RootPaths {
		fmt.Printf("  %s\n", r)
	}
}

func (a *app) cmdTree(ctx context.Context, expand string) {
	p := a.resolveProject(ctx)

	var paths []string
	for _, e := range strings.Split(expand, ",") {
		if e = strings.TrimSpace(e); e != "" {
			paths = append(paths, e)
		}
	}

	listing, err := a.service.ListTree(ctx, p.RepoRoot, p.RootPaths, doctree.Nest(paths))
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(listing)
		return
	}
	if len(listing.Entries) == 0 {
		fmt.Println("No documents found")
		return
	}
	for _, e := range listing.Entries {
		marker := "-"
		if e.Type == doctree.EntryDirectory {
			marker = "d"
		}
		fmt.Printf("%s %s\n", marker, e.Path)
	}
}

func (a *app) cmdSuggest(ctx context.Context) {
	p := a.resolveProject(ctx)
	suggestions, err := a.service.SuggestFolders(ctx, p.RepoRoot)
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(suggestions)
		return
	}
	if len(suggestions) == 0 {
		fmt.Println("No candidate folders found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tCATEGORY")
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s\t%s\n", s.Path, s.Category)
	}
	w.Flush()
}

func (a *app) cmdCat(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: orchardctl cat <path>")
		os.Exit(1)
	}
	p := a.resolveProject(ctx)
	fc, err := a.service.ReadFile(ctx, p.RepoRoot, p.RootPaths, args[0])
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(fc)
		return
	}
	fmt.Print(fc.Content)
}

func (a *app) cmdWrite(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: orchardctl write <path> < content")
		os.Exit(1)
	}
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		os.Exit(1)
	}
	p := a.resolveProject(ctx)
	res, err := a.service.WriteFile(ctx, p.RepoRoot, p.RootPaths, args[0], content)
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(res)
		return
	}
	fmt.Printf("Wrote %s (%d bytes)\n", res.Path, res.Size)
}

func (a *app) cmdStatus(ctx context.Context) {
	p := a.resolveProject(ctx)
	st, err := a.service.Status(ctx, p.RepoRoot)
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(st)
		return
	}

	if st.Detached {
		fmt.Printf("HEAD detached at %s\n", shortHash(st.Head))
	} else if st.Upstream != "" {
		fmt.Printf("On branch %s (upstream %s, ahead %d, behind %d)\n",
			st.Branch, st.Upstream, st.Ahead, st.Behind)
	} else {
		fmt.Printf("On branch %s\n", st.Branch)
	}
	if st.Clean {
		fmt.Println("Working tree clean")
		return
	}
	printChanges("Staged", st.Staged)
	printChanges("Unstaged", st.Unstaged)
	printPaths("Untracked", st.Untracked)
	printPaths("Conflicts", st.Conflicts)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func printChanges(label string, changes []gitsync.FileChange) {
	if len(changes) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, c := range changes {
		fmt.Printf("  %s %s\n", c.Status, c.Path)
	}
}

func printPaths(label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
}

func (a *app) cmdLog(ctx context.Context, limit int, pathFilter string) {
	p := a.resolveProject(ctx)
	commits, err := a.service.Log(ctx, p.RepoRoot, limit, pathFilter)
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(commits)
		return
	}
	if len(commits) == 0 {
		fmt.Println("No commits")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMMIT\tDATE\tAUTHOR\tSUBJECT")
	for _, c := range commits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.ShortHash, c.Date.Format("2006-01-02 15:04"), c.Author, c.Subject)
	}
	w.Flush()
}

func (a *app) cmdCommit(ctx context.Context, message string, paths []string) {
	if strings.TrimSpace(message) == "" {
		fmt.Fprintln(os.Stderr, "Usage: orchardctl -m <message> commit [paths...]")
		os.Exit(1)
	}
	p := a.resolveProject(ctx)
	commit, err := a.service.Commit(ctx, p.RepoRoot, message, paths...)
	if err != nil {
		fail(err)
	}
	if a.jsonOut {
		printJSON(commit)
		return
	}
	fmt.Printf("Committed %s %s\n", commit.ShortHash, commit.Subject)
}

func (a *app) cmdPush(ctx context.Context) {
	p := a.resolveProject(ctx)
	if err := a.service.Push(ctx, p.RepoRoot); err != nil {
		fail(err)
	}
	fmt.Println("Pushed")
}

func (a *app) cmdPull(ctx context.Context) {
	p := a.resolveProject(ctx)
	if err := a.service.Pull(ctx, p.RepoRoot); err != nil {
		fail(err)
	}
	fmt.Println("Pulled")
}

func (a *app) cmdWatch(ctx context.Context) {
	p := a.resolveProject(ctx)
	if len(p.RootPaths) == 0 {
		fmt.Fprintln(os.Stderr, "No document roots configured; run roots add first")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	isIgnored, err := a.service.IgnoreFilter(ctx, p.RepoRoot)
	if err != nil {
		fail(err)
	}

	w, err := watcher.New(a.bc, p.RepoRoot, p.RootPaths, a.cfg.WatchDebounce, isIgnored)
	if err != nil {
		fail(err)
	}
	defer w.Close()

	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		fmt.Printf("Metrics on http://%s/metrics\n", a.cfg.MetricsAddr)
	}

	ch := a.bc.Subscribe()
	defer a.bc.Unsubscribe(ch)

	fmt.Printf("Watching %d roots under %s\n", len(p.RootPaths), p.RepoRoot)

	var commitTimer *time.Timer
	var commitC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopping")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			a.printEvent(ev)
			if a.autoCommit && isDocumentEvent(ev.Type) {
				if commitTimer == nil {
					commitTimer = time.NewTimer(autoCommitDelay)
					commitC = commitTimer.C
				} else {
					if !commitTimer.Stop() {
						select {
						case <-commitC:
						default:
						}
					}
					commitTimer.Reset(autoCommitDelay)
				}
			}
		case <-commitC:
			commitTimer = nil
			commitC = nil
			a.runAutoCommit(ctx, p.RepoRoot)
		}
	}
}

func (a *app) printEvent(ev events.Event) {
	if a.jsonOut {
		b, err := events.MarshalEvent(ev)
		if err != nil {
			return
		}
		fmt.Println(string(b))
		return
	}
	ts := time.Unix(ev.Timestamp, 0).UTC().Format(time.RFC3339)
	if ev.Path != "" {
		fmt.Printf("%s %-6s %s\n", ts, ev.Type, ev.Path)
	} else {
		fmt.Printf("%s %s\n", ts, ev.Type)
	}
}

// isDocumentEvent filters what re-arms the auto-commit timer. The commit
// itself publishes a commit event, which must not trigger another commit.
func isDocumentEvent(typ string) bool {
	switch typ {
	case events.EventCreate, events.EventModify, events.EventDelete:
		return true
	}
	return false
}

func (a *app) runAutoCommit(ctx context.Context, repoRoot string) {
	release := a.locks.Acquire(repoRoot)
	defer release()

	commit, err := a.service.Commit(ctx, repoRoot, autoCommitMessage)
	var gitErr *gitsync.GitError
	if errors.As(err, &gitErr) && gitErr.Code == gitsync.CodeNothingToCommit {
		return
	}
	if err != nil {
		logging.Warn("auto-commit failed",
			zap.String("code", string(docs.ErrorCodeOf(err))), zap.Error(err))
		return
	}
	fmt.Printf("Committed %s %s\n", commit.ShortHash, commit.Subject)
}
