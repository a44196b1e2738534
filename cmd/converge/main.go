// An interactive multi-replica playground. Each named peer is a full
// in-process replica holding a tiny demo document (a label register
// and an items set); sync ships real wire snapshots through a record
// queue, so divergence and convergence can be watched by hand:
//
//	◌ peer alice
//	◌ peer bob
//	◌ add alice chair
//	◌ remove bob chair
//	◌ sync alice bob
//	◌ ls bob
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sanity-io/litter"

	"github.com/drpcorg/converge"
	"github.com/drpcorg/converge/crdt"
	"github.com/drpcorg/converge/utils"
	"github.com/drpcorg/converge/wire"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("peer"),
	readline.PcItem("set"),
	readline.PcItem("get"),
	readline.PcItem("add"),
	readline.PcItem("remove"),
	readline.PcItem("ls"),
	readline.PcItem("sync"),
	readline.PcItem("show"),
	readline.PcItem("stats"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// session is one replica plus its demo document.
type session struct {
	replica *converge.Replica
	label   crdt.Register[string]
	items   crdt.Set[string]
}

var sessions = xsync.NewMapOf[string, *session]()

func getSession(name string) (*session, error) {
	s, ok := sessions.Load(name)
	if !ok {
		return nil, fmt.Errorf("unknown peer %q, try: peer %s", name, name)
	}
	return s, nil
}

// sync ships src's snapshots to dst through a record queue the way a
// transport would, then merges them on the dst side.
func sync(src, dst *session) error {
	lab, err := wire.EncodeRegister(src.label)
	if err != nil {
		return err
	}
	items, err := wire.EncodeSet(src.items)
	if err != nil {
		return err
	}
	q := toyqueue.RecordQueue{Limit: 16}
	if err = wire.Ship(&q, lab, items); err != nil {
		return err
	}
	recs, err := wire.Receive(&q)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		switch rec[0] &^ ('a' - 'A') {
		case 'L':
			reg, err := wire.DecodeRegister[string](rec)
			if err != nil {
				return err
			}
			dst.label = converge.MergeRegister(dst.replica, dst.label, reg)
		case 'O':
			set, err := wire.DecodeSet[string](rec)
			if err != nil {
				return err
			}
			dst.items = converge.MergeSet(dst.replica, dst.items, set)
		}
	}
	return nil
}

func showStats(reg *prometheus.Registry) {
	mfs, err := reg.Gather()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Printf("%s{%s} %v\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
}

const usage = `peer NAME             create a replica
set PEER VALUE        write the label register
get PEER              read the label register
add PEER ITEM         add to the items set (prints the minted tag)
remove PEER ITEM      remove from the items set
ls PEER               list live items
sync SRC DST          ship SRC snapshots to DST and merge
show PEER             dump replica state
stats                 op/merge counters
exit`

func main() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/converge.history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(converge.Collectors()...)
	log := utils.NewDefaultLogger(slog.LevelInfo)

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
		err = nil
		switch cmd {
		case "help":
			fmt.Println(usage)
		case "exit", "quit":
			os.Exit(0)
		case "peer":
			if len(args) != 1 {
				err = fmt.Errorf("usage: peer NAME")
				break
			}
			name := args[0]
			replica := converge.NewReplica(name, &crdt.WallClock{}, log)
			s := &session{
				replica: replica,
				label:   converge.NewRegister(replica, ""),
				items:   crdt.NewSet[string](),
			}
			sessions.Store(name, s)
		case "set":
			if len(args) < 2 {
				err = fmt.Errorf("usage: set PEER VALUE")
				break
			}
			var s *session
			if s, err = getSession(args[0]); err == nil {
				s.label = converge.Write(s.replica, s.label, strings.Join(args[1:], " "))
			}
		case "get":
			if len(args) != 1 {
				err = fmt.Errorf("usage: get PEER")
				break
			}
			var s *session
			if s, err = getSession(args[0]); err == nil {
				fmt.Printf("%q (peer %s, time %d)\n", s.label.Get(), s.label.Peer(), s.label.Time())
			}
		case "add":
			if len(args) != 2 {
				err = fmt.Errorf("usage: add PEER ITEM")
				break
			}
			var s *session
			if s, err = getSession(args[0]); err == nil {
				var tag crdt.Tag
				s.items, tag = converge.Add(s.replica, s.items, args[1])
				fmt.Println(tag)
			}
		case "remove":
			if len(args) != 2 {
				err = fmt.Errorf("usage: remove PEER ITEM")
				break
			}
			var s *session
			if s, err = getSession(args[0]); err == nil {
				s.items = converge.Remove(s.replica, s.items, args[1])
			}
		case "ls":
			if len(args) != 1 {
				err = fmt.Errorf("usage: ls PEER")
				break
			}
			var s *session
			if s, err = getSession(args[0]); err == nil {
				for _, v := range s.items.Elements() {
					fmt.Println(v)
				}
			}
		case "sync":
			if len(args) != 2 {
				err = fmt.Errorf("usage: sync SRC DST")
				break
			}
			var src, dst *session
			if src, err = getSession(args[0]); err != nil {
				break
			}
			if dst, err = getSession(args[1]); err != nil {
				break
			}
			err = sync(src, dst)
		case "show":
			if len(args) != 1 {
				err = fmt.Errorf("usage: show PEER")
				break
			}
			var s *session
			if s, err = getSession(args[0]); err == nil {
				elements, tombstones := s.items.Snapshot()
				fmt.Println(litter.Sdump(map[string]any{
					"label":      s.label.Get(),
					"elements":   elements,
					"tombstones": tombstones,
				}))
			}
		case "stats":
			showStats(metrics)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
		}

		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", cmd, err.Error())
		}
	}
}
