// Pyrite CLI - runs a workload through the runtime core and reports
// dispatch-cache behavior.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/pyrite-lang/pyrite/manifest"
	"github.com/pyrite-lang/pyrite/profile"
	"github.com/pyrite-lang/pyrite/runtime"
	"github.com/pyrite-lang/pyrite/runtime/snapshot"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("pyrite")

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0 = quiet)")
	iters := flag.Int("n", 1000, "Workload iterations")
	trace := flag.Bool("trace", false, "Log per-site dispatch behavior")
	save := flag.Bool("save", false, "Persist the run's profile to the profile store")
	snap := flag.Bool("snapshot", false, "Write the run's profile as a CBOR snapshot")
	listSessions := flag.Bool("sessions", false, "List stored profile sessions and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pyrite [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the benchmark workload through the dispatch machinery and prints\n")
		fmt.Fprintf(os.Stderr, "call-site statistics. Configuration is read from pyrite.toml if present.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pyrite -n 100000           # Run the workload, print stats\n")
		fmt.Fprintf(os.Stderr, "  pyrite -save -snapshot     # Also persist and snapshot the profile\n")
		fmt.Fprintf(os.Stderr, "  pyrite -sessions           # List stored sessions\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	cfg, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = manifest.Default()
	}

	if *listSessions {
		if err := printSessions(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	reg := runtime.NewBuiltinRegistry()
	tbl := runtime.NewCallSiteTable(reg)
	if err := runWorkload(tbl, *iters); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session := profile.NewSessionID()
	prof := snapshot.CaptureProfile(session, tbl)

	printStats(tbl, prof, *trace || cfg.Runtime.Trace)

	if *save {
		if err := saveProfile(cfg, prof); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved session %s to %s\n", session, cfg.ProfilePath())
	}
	if *snap {
		dir := cfg.SnapshotDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path := filepath.Join(dir, session+".pyprof")
		if err := snapshot.WriteProfile(path, prof); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote snapshot %s\n", path)
	}
}

// runWorkload drives the dispatch cells the way an interpreter loop
// would: a handful of static operator occurrences, executed many times
// over shifting operand representations.
func runWorkload(tbl *runtime.CallSiteTable, iters int) error {
	types, err := buildHierarchy()
	if err != nil {
		return err
	}
	log.Infof("workload hierarchy: %d types, deepest MRO %d",
		len(types), len(types[len(types)-1].MRO()))

	sig, err := runtime.ParseSignature("step", "acc", "delta", "*", "scale")
	if err != nil {
		return err
	}

	add := tbl.Site(0, runtime.OpAdd)
	mul := tbl.Site(3, runtime.OpMul)
	div := tbl.Site(6, runtime.OpDiv)
	lt := tbl.Site(9, runtime.OpLt)
	neg := tbl.Site(12, runtime.OpNeg)
	cat := tbl.Site(15, runtime.OpAdd)

	var acc runtime.Object = int32(0)
	for i := 0; i < iters; i++ {
		frame, err := sig.Bind(
			[]runtime.Object{acc, int32(i)},
			map[string]runtime.Object{"scale": int32(3)},
		)
		if err != nil {
			return err
		}

		// acc = acc + delta*scale; every few iterations the operands
		// change representation so sites re-specialize.
		step, err := mul.Resolve(frame[1], frame[2])
		if err != nil {
			return err
		}
		if i%7 == 3 {
			step, err = div.Resolve(step, int32(2))
			if err != nil {
				return err
			}
		}
		acc, err = add.Resolve(frame[0], step)
		if err != nil {
			return err
		}

		below, err := lt.Resolve(acc, int32(1<<30))
		if err != nil {
			return err
		}
		if below == false {
			if acc, err = neg.ResolveUnary(acc); err != nil {
				return err
			}
		}

		if i%64 == 0 {
			if _, err := cat.Resolve("tick ", "tock"); err != nil {
				return err
			}
		}
	}
	log.Debugf("workload accumulator: %s", runtime.Repr200(acc))
	return nil
}

// buildHierarchy defines a small diamond so type construction and
// digesting are exercised along with dispatch.
func buildHierarchy() ([]*runtime.Type, error) {
	base, err := runtime.NewType("Shape", nil, runtime.WithDict())
	if err != nil {
		return nil, err
	}
	round, err := runtime.NewType("Round", []*runtime.Type{base})
	if err != nil {
		return nil, err
	}
	flat, err := runtime.NewType("Flat", []*runtime.Type{base})
	if err != nil {
		return nil, err
	}
	disc, err := runtime.NewType("Disc", []*runtime.Type{round, flat},
		runtime.WithSlots("radius"))
	if err != nil {
		return nil, err
	}

	types := []*runtime.Type{base, round, flat, disc}
	for _, t := range types {
		d := snapshot.DigestType(t)
		log.Debugf("type %s digest %x", d.Name, d.Hash[:8])
	}
	return types, nil
}

func printStats(tbl *runtime.CallSiteTable, prof *snapshot.Profile, trace bool) {
	s := tbl.Stats()

	bold, dim, reset := "", "", ""
	if isatty.IsTerminal(os.Stdout.Fd()) {
		bold, dim, reset = "\x1b[1m", "\x1b[2m", "\x1b[0m"
	}

	fmt.Printf("%sDispatch sites:%s %d (%d monomorphic, %d polymorphic)\n",
		bold, reset, s.Sites, s.Monomorphic, s.Polymorphic)
	fmt.Printf("%sGuard hits:%s     %d / %d (%.1f%%)\n",
		bold, reset, s.Hits, s.Hits+s.Misses, s.HitRate())

	if !trace {
		return
	}
	for _, site := range prof.Sites {
		fmt.Printf("%s  pc=%-4d %-9s %-12s hits=%-8d misses=%-4d installs=%d%s\n",
			dim, site.PC, site.Op, site.State,
			site.Hits, site.Misses, site.Installs, reset)
	}
}

func saveProfile(cfg *manifest.Manifest, prof *snapshot.Profile) error {
	store, err := profile.Open(cfg.ProfilePath())
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(prof)
}

func printSessions(cfg *manifest.Manifest) error {
	store, err := profile.Open(cfg.ProfilePath())
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}
	for _, id := range ids {
		p, err := store.Load(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %d sites\n", id, p.CreatedAt, len(p.Sites))
	}
	return nil
}
