package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"wavebench/internal/config"
	"wavebench/internal/db"
	"wavebench/internal/notify"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)
	// Mock exit
	oldExit := exit
	exit = func(code int) {
		if code != 0 {
			panic(fmt.Sprintf("exit-%d", code))
		}
	}
	defer func() { exit = oldExit }()
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "exit-") {
				return
			}
			panic(r)
		}
	}()
	root.SetArgs(args)
	b := new(bytes.Buffer)
	root.SetOut(b)
	root.SetErr(b)
	root.SetIn(bytes.NewBufferString(""))
	err := root.Execute()
	return b.String(), err
}

// resetFlags resets all flags to their default values.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// memStore is an in-memory history store.
type memStore struct {
	runs    []db.Run
	saveErr error
	closed  bool
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func (m *memStore) SaveRun(run db.Run) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) ListRuns(limit int) ([]db.RunSummary, error) {
	runs := append([]db.Run(nil), m.runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	var out []db.RunSummary
	for _, r := range runs {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.Summary())
	}
	return out, nil
}

func (m *memStore) LoadRun(id string) (*db.Run, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, db.ErrRunNotFound
}

func (m *memStore) LatestRun(scale string) (*db.Run, error) {
	var latest *db.Run
	for i := range m.runs {
		r := &m.runs[i]
		if r.Scale == scale && (latest == nil || r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, db.ErrRunNotFound
	}
	return latest, nil
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

type workspace struct {
	dir      string
	store    *memStore
	notifier *recordingNotifier
}

// setupWorkspace moves the test into an empty directory with a fresh viper
// state, an in-memory history store and a recording notifier.
func setupWorkspace(t *testing.T) *workspace {
	t.Helper()
	w := &workspace{dir: t.TempDir(), store: &memStore{}, notifier: &recordingNotifier{}}
	t.Chdir(w.dir)
	t.Setenv("SLACK_BOT_USER_TOKEN", "")

	viper.Reset()
	t.Cleanup(viper.Reset)

	oldStore, oldNotifier := newStoreFunc, newNotifierFunc
	newStoreFunc = func(config.Store) (db.Store, error) { return w.store, nil }
	newNotifierFunc = func(notify.Options, *slog.Logger) notify.Notifier { return w.notifier }
	t.Cleanup(func() {
		newStoreFunc, newNotifierFunc = oldStore, oldNotifier
	})
	return w
}
