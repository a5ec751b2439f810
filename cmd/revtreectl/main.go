package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/readline"
	"github.com/google/uuid"

	"github.com/otterdb/revtree/revtree"
	"github.com/otterdb/revtree/storage"
	"github.com/otterdb/revtree/utils"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("new"),
	readline.PcItem("insert"),
	readline.PcItem("show"),
	readline.PcItem("history"),
	readline.PcItem("prune"),
	readline.PcItem("purge"),
	readline.PcItem("compress"),
	readline.PcItem("expire"),
	readline.PcItem("sweep"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// cmdNew mints a fresh document ID with no caller-supplied name, mirroring
// how a client that doesn't care about its own ID numbering would create
// a brand-new document.
func cmdNew() string {
	return uuid.New().String()
}

// insert <doc> <revID> <parentRevID|-> <body...>
func cmdInsert(s *storage.Store, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: insert <doc> <revID> <parentRevID|-> <body...>")
	}
	doc, revID, parentID := args[0], args[1], args[2]
	body := strings.Join(args[3:], " ")

	var status int
	err := s.WithDocument(doc, func(tr *revtree.Tree) error {
		var parent []byte
		if parentID != "-" {
			parent = []byte(parentID)
		}
		_, st := tr.InsertByParentID([]byte(revID), []byte(body), false, false, parent, false)
		status = st
		if st >= 300 {
			return fmt.Errorf("insert rejected: status %d", st)
		}
		return nil
	})
	if status != 0 {
		s.Metrics().ObserveInsert(status)
		if status == revtree.StatusConflict {
			s.Metrics().ObserveConflict()
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("ok: status %d\n", status)
	return nil
}

func cmdShow(s *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: show <doc>")
	}
	tr, err := s.LoadTree(args[0])
	if err != nil {
		return err
	}
	for _, rev := range tr.CurrentRevisions() {
		body := tr.ReadBody(rev)
		fmt.Printf("%s\tdeleted=%v\tbody=%q\n", rev.String(), rev.IsDeleted(), body)
	}
	return nil
}

func cmdHistory(s *storage.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: history <doc> <revID>")
	}
	tr, err := s.LoadTree(args[0])
	if err != nil {
		return err
	}
	rev := tr.Get([]byte(args[1]))
	if rev == nil {
		return fmt.Errorf("no such revision: %s", args[1])
	}
	for _, r := range rev.History() {
		fmt.Println(r.String())
	}
	return nil
}

func cmdPrune(s *storage.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: prune <doc> <maxDepth>")
	}
	depth, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	return s.WithDocument(args[0], func(tr *revtree.Tree) error {
		n := tr.Prune(depth)
		s.Metrics().ObservePrune(n)
		fmt.Printf("pruned %d revisions\n", n)
		return nil
	})
}

func cmdPurge(s *storage.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: purge <doc> <leafRevID>")
	}
	return s.WithDocument(args[0], func(tr *revtree.Tree) error {
		n := tr.Purge([]byte(args[1]))
		s.Metrics().ObservePurge(n)
		fmt.Printf("purged %d revisions\n", n)
		return nil
	})
}

func cmdCompress(s *storage.Store, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: compress <doc> <targetRevID> <referenceRevID>")
	}
	return s.WithDocument(args[0], func(tr *revtree.Tree) error {
		target := tr.Get([]byte(args[1]))
		reference := tr.Get([]byte(args[2]))
		if target == nil || reference == nil {
			return fmt.Errorf("revision not found")
		}
		if !tr.Compress(target, reference) {
			return fmt.Errorf("compress failed")
		}
		s.Metrics().ObserveCompression()
		fmt.Println("ok")
		return nil
	})
}

func cmdExpire(s *storage.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: expire <doc> <seconds>")
	}
	secs, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	return s.Expiry().Set(args[0], time.Now().Add(time.Duration(secs)*time.Second))
}

func cmdSweep(s *storage.Store, _ []string) error {
	n, err := s.Expiry().PurgeExpired(time.Now(), s)
	if err != nil {
		return err
	}
	fmt.Printf("swept %d expired documents\n", n)
	return nil
}

func main() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:              "revtree> ",
		HistoryFile:         "/tmp/revtreectl_history.tmp",
		AutoComplete:        completer,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	if len(os.Args) < 2 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: revtreectl <dir>")
		os.Exit(2)
	}

	log := utils.NewDefaultLogger(0)
	store, err := storage.Open(os.Args[1], storage.Options{}, log)
	if err != nil {
		store, err = storage.Create(os.Args[1], storage.Options{}, log)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer store.Close()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		args := strings.Split(line, " ")
		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "exit", "quit":
			os.Exit(0)
		case "help":
			fmt.Println("insert show history prune purge compress expire sweep exit")
		case "new":
			fmt.Println(cmdNew())
		case "insert":
			err = cmdInsert(store, args)
		case "show":
			err = cmdShow(store, args)
		case "history":
			err = cmdHistory(store, args)
		case "prune":
			err = cmdPrune(store, args)
		case "purge":
			err = cmdPurge(store, args)
		case "compress":
			err = cmdCompress(store, args)
		case "expire":
			err = cmdExpire(store, args)
		case "sweep":
			err = cmdSweep(store, args)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
		}

		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error executing %s: %s\n", cmd, err.Error())
		}
	}
}
