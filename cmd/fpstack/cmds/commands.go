package cmds

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hcstack/fpstack/pkg/callsite"
	"github.com/hcstack/fpstack/pkg/config"
	"github.com/hcstack/fpstack/pkg/depot"
	"github.com/hcstack/fpstack/pkg/fpstack"
	"github.com/hcstack/fpstack/pkg/logflags"
	"github.com/hcstack/fpstack/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// noColor disables colored output.
	noColor bool

	// hexUpper and hexPrefix select how address lists are rendered.
	hexUpper  bool
	hexPrefix bool

	traceDepth   int
	traceRecurse int
	verifyCalls  bool

	depotCaptures int

	verbose bool

	conf *config.Config
)

var (
	errNegativeRecurse = errors.New("--recurse must not be negative")
	errNegativeDepth   = errors.New("--depth must not be negative")
)

const fpstackCommandLongDesc = `fpstack prints backtraces of its own goroutine by following the frame
pointer chain, without symbol tables or unwind information.

It is a demonstration and diagnostic front end for the fpstack library:
'trace' walks a stack of configurable depth, 'limits' shows the bounds a
frame pointer is validated against and 'depot' shows backtrace
deduplication.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	rootCommand := &cobra.Command{
		Use:           "fpstack",
		Short:         "fpstack walks Go stacks through frame pointers.",
		Long:          fpstackCommandLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logflags.Setup(log, logOutput, logDest)
		},
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output: walk, callsite, depot, config.")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")
	rootCommand.PersistentFlags().BoolVarP(&noColor, "no-color", "", conf.NoColor, "Disable colored output.")

	// 'trace' subcommand.
	traceCommand := &cobra.Command{
		Use:   "trace",
		Short: "Print a frame pointer backtrace.",
		Long: `Recurses the requested number of times, captures the stack and prints
every frame followed by the list of return addresses.

With --verify-calls every return address is checked to directly follow a
call instruction; frames failing the check are marked.`,
		Args: cobra.NoArgs,
		RunE: traceCmd,
	}
	traceCommand.Flags().IntVar(&traceDepth, "depth", conf.Depth(), "Maximum number of frames printed (0 means no limit).")
	traceCommand.Flags().IntVar(&traceRecurse, "recurse", 4, "Number of nested calls made before capturing.")
	traceCommand.Flags().BoolVar(&verifyCalls, "verify-calls", conf.VerifyCalls, "Check that return addresses follow call instructions.")
	addStyleFlags(traceCommand.Flags())
	rootCommand.AddCommand(traceCommand)

	// 'limits' subcommand.
	limitsCommand := &cobra.Command{
		Use:   "limits",
		Short: "Print the bounds frame pointers are validated against.",
		Args:  cobra.NoArgs,
		RunE:  limitsCmd,
	}
	rootCommand.AddCommand(limitsCommand)

	// 'depot' subcommand.
	depotCommand := &cobra.Command{
		Use:   "depot",
		Short: "Capture backtraces from a few call sites and show how they are deduplicated.",
		Args:  cobra.NoArgs,
		RunE:  depotCmd,
	}
	depotCommand.Flags().IntVar(&depotCaptures, "captures", 9, "Number of backtraces captured.")
	addStyleFlags(depotCommand.Flags())
	rootCommand.AddCommand(depotCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fpstack\n%s\n", version.FpstackVersion)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&verbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

func addStyleFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&hexUpper, "upper", conf.HexUpper, "Print addresses with uppercase hex digits.")
	fs.BoolVar(&hexPrefix, "prefix", conf.HexPrefix, "Print addresses with a 0x prefix.")
}

// ipsVerb returns the fmt verb rendering address lists in the selected style.
func ipsVerb() string {
	verb := "%x"
	if hexUpper {
		verb = "%X"
	}
	if hexPrefix {
		verb = verb[:1] + "#" + verb[1:]
	}
	return verb
}

//go:noinline
func descend(n int, fn func()) {
	if n <= 0 {
		fn()
		return
	}
	descend(n-1, fn)
}

func traceCmd(cmd *cobra.Command, args []string) error {
	if traceRecurse < 0 {
		return errNegativeRecurse
	}
	if traceDepth < 0 {
		return errNegativeDepth
	}
	var verifier *callsite.Verifier
	if verifyCalls {
		if !callsite.Supported() {
			return fmt.Errorf("call verification is not supported on %s", runtime.GOARCH)
		}
		var err error
		verifier, err = callsite.New(conf.CallsiteCacheSize)
		if err != nil {
			return err
		}
	}

	out := newOutput(cmd.OutOrStdout(), noColor)
	descend(traceRecurse, func() {
		fpstack.Capture(func(s *fpstack.Stack) {
			printStack(out, s, traceDepth, verifier)
		})
	})
	return nil
}

func printStack(out *output, s *fpstack.Stack, depth int, verifier *callsite.Verifier) {
	n := 0
	c := s.Begin()
	for ; c != s.End(); c.Advance() {
		if depth > 0 && n >= depth {
			break
		}
		f := c.Frame()
		out.printf("#%-3d fp=%s ip=%s", n, out.addr(f.FP), out.addr(f.IP))
		if verifier != nil {
			if call, ok := verifier.Lookup(f.IP); ok {
				out.printf(" call=%#x %s", call.Addr, call.Text)
			} else {
				out.printf(" %s", out.warn("not a call site"))
			}
		}
		out.printf("\n")
		n++
	}
	if n == 0 {
		out.printf("%s\n", out.warn("no frames (frame pointers unavailable)"))
	}
	out.printf("ips: "+ipsVerb()+"\n", s.IPs())
}

func limitsCmd(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd.OutOrStdout(), noColor)
	out.printf("stack size limit: %d bytes\n", fpstack.MaxStackSize())
	r := fpstack.CurrentRegion()
	if r == (fpstack.Region{}) {
		out.printf("goroutine stack: %s\n", out.warn("unavailable on "+runtime.GOOS+"/"+runtime.GOARCH))
	} else {
		out.printf("goroutine stack: [%s, %s) %d bytes\n", out.addr(r.Lo), out.addr(r.Hi), r.Hi-r.Lo)
	}
	out.printf("call site decoding: %v\n", callsite.Supported())
	return nil
}

func depotCmd(cmd *cobra.Command, args []string) error {
	if depotCaptures < 0 {
		return errors.New("--captures must not be negative")
	}
	out := newOutput(cmd.OutOrStdout(), noColor)
	d := depot.New()
	for i := 0; i < depotCaptures; i++ {
		id := captureSite(d, i%3)
		out.printf("capture %d: id=%016x\n", i, id)
	}
	d.Range(func(id uint64, t *depot.Trace) bool {
		out.printf("%016x: "+ipsVerb()+"\n", id, fpstack.PCs(t.PCs()))
		return true
	})
	out.printf("unique backtraces: %d\n", d.Len())
	return nil
}

func captureSite(d *depot.Depot, site int) uint64 {
	switch site {
	case 0:
		return siteA(d)
	case 1:
		return siteB(d)
	default:
		return siteC(d)
	}
}

//go:noinline
func siteA(d *depot.Depot) uint64 { return d.Capture(0) }

//go:noinline
func siteB(d *depot.Depot) uint64 { return d.Capture(0) }

//go:noinline
func siteC(d *depot.Depot) uint64 { return d.Capture(0) }
