// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"lexredact/internal/detector"
	"lexredact/internal/paths"
	"lexredact/internal/store"
	"lexredact/internal/suppressions"
)

const usage = "Usage: lexredact-learn --action <list|confirm|deny|remove|rules|allow|block|unrule|cleanup> [options]"

type options struct {
	action    string
	storePath string
	listsFile string
	entity    string
	text      string
	id        string
	reason    string
	expires   time.Duration
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := options{}
	fs := flag.NewFlagSet("lexredact-learn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.action, "action", "a", "", "Action: list, confirm, deny, remove (learned store); rules, allow, block, unrule, cleanup (lists file)")
	fs.StringVar(&opts.storePath, "store", "", "Learned-entity database (default: "+paths.GetStoreFile()+")")
	fs.StringVar(&opts.listsFile, "lists", "", "Allow/deny lists file (default: "+paths.GetListsFile()+")")
	fs.StringVarP(&opts.entity, "type", "t", "", "Entity type, e.g. PERSON")
	fs.StringVar(&opts.text, "text", "", "Entity text")
	fs.StringVar(&opts.id, "id", "", "Rule ID (for unrule)")
	fs.StringVar(&opts.reason, "reason", "", "Why the rule exists (for allow and block)")
	fs.DurationVar(&opts.expires, "expires-in", 0, "Rule lifetime, e.g. 720h; 0 never expires")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if opts.action == "" {
		fmt.Fprintln(stderr, "Error: --action is required")
		fmt.Fprintln(stderr, usage)
		return 1
	}

	var err error
	switch opts.action {
	case "list", "confirm", "deny", "remove":
		err = runStore(context.Background(), opts, stdout)
	case "rules", "allow", "block", "unrule", "cleanup":
		err = runLists(opts, stdout)
	default:
		err = fmt.Errorf("unknown action '%s'", opts.action)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runStore(ctx context.Context, opts options, stdout io.Writer) error {
	path := opts.storePath
	if path == "" {
		path = paths.GetStoreFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	st, err := store.OpenBolt(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.action == "list" {
		return listEntries(ctx, st, stdout)
	}

	t, err := entityType(opts)
	if err != nil {
		return err
	}
	switch opts.action {
	case "confirm", "deny":
		confirmed := opts.action == "confirm"
		entry, err := st.Record(ctx, detector.Candidate{Type: t, Text: opts.text, Score: 1, Source: detector.SourceLearned}, confirmed)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Recorded %s %s (%s), seen %d times\n", entry.Type, decision(entry.Confirmed), entry.Text, entry.Count)
	case "remove":
		if err := st.Remove(ctx, t, opts.text); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no learned %s entity matches %q", t, opts.text)
			}
			return err
		}
		fmt.Fprintf(stdout, "Removed learned %s entity\n", t)
	}
	return nil
}

func listEntries(ctx context.Context, st store.Store, stdout io.Writer) error {
	entries, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No learned entities found.")
		return nil
	}
	fmt.Fprintf(stdout, "Found %d learned entities:\n\n", len(entries))
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tDECISION\tCOUNT\tUPDATED\tTEXT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", e.Type, decision(e.Confirmed), e.Count, e.UpdatedAt.Format("2006-01-02 15:04:05"), e.Text)
	}
	return w.Flush()
}

func runLists(opts options, stdout io.Writer) error {
	path := opts.listsFile
	if path == "" {
		path = paths.GetListsFile()
	}
	manager, err := suppressions.NewManager(path)
	if err != nil {
		return err
	}

	switch opts.action {
	case "rules":
		listRules(manager, stdout)
		return nil
	case "allow", "block":
		var t detector.EntityType
		if opts.entity != "" {
			if t, err = detector.ParseEntityType(opts.entity); err != nil {
				return err
			}
		}
		if opts.text == "" {
			return fmt.Errorf("--text is required for %s", opts.action)
		}
		var expiresAt *time.Time
		if opts.expires > 0 {
			at := time.Now().Add(opts.expires).UTC()
			expiresAt = &at
		}
		kind := suppressions.KindAllow
		if opts.action == "block" {
			kind = suppressions.KindDeny
		}
		rule, err := manager.AddRule(kind, t, opts.text, opts.reason, os.Getenv("USER"), expiresAt)
		if err != nil {
			return err
		}
		if err := manager.Save(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved %s rule %s in %s\n", rule.Kind, rule.ID, manager.Path())
	case "unrule":
		if opts.id == "" {
			return fmt.Errorf("--id is required for unrule")
		}
		if err := manager.RemoveRule(opts.id); err != nil {
			return err
		}
		if err := manager.Save(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Successfully removed rule: %s\n", opts.id)
	case "cleanup":
		removed := manager.CleanupExpired()
		if err := manager.Save(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Cleaned up %d expired rules\n", removed)
	}
	return nil
}

func listRules(manager *suppressions.Manager, stdout io.Writer) {
	rules := manager.ListRules()
	if len(rules) == 0 {
		fmt.Fprintln(stdout, "No rules found.")
		return
	}

	fmt.Fprintf(stdout, "Found %d rules:\n\n", len(rules))
	for _, rule := range rules {
		fmt.Fprintf(stdout, "ID: %s\n", rule.ID)
		fmt.Fprintf(stdout, "Kind: %s\n", rule.Kind)
		if rule.Type != "" {
			fmt.Fprintf(stdout, "Type: %s\n", rule.Type)
		}
		fmt.Fprintf(stdout, "Hash: %s\n", rule.Hash[:16])
		fmt.Fprintf(stdout, "Enabled: %v\n", rule.Enabled)
		if rule.Reason != "" {
			fmt.Fprintf(stdout, "Reason: %s\n", rule.Reason)
		}
		if rule.CreatedBy != "" {
			fmt.Fprintf(stdout, "Created By: %s\n", rule.CreatedBy)
		}
		fmt.Fprintf(stdout, "Created At: %s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
		if rule.ExpiresAt != nil {
			fmt.Fprintf(stdout, "Expires At: %s\n", rule.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(stdout, "---")
	}
}

func entityType(opts options) (detector.EntityType, error) {
	if opts.entity == "" || opts.text == "" {
		return "", fmt.Errorf("--type and --text are required for %s", opts.action)
	}
	return detector.ParseEntityType(opts.entity)
}

func decision(confirmed bool) string {
	if confirmed {
		return "confirmed"
	}
	return "denied"
}
