package version

import (
	"runtime/debug"
	"strings"
)

// listModules lists the main module and its dependencies, one per line.
func listModules() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "not built in module mode"
	}

	var b strings.Builder
	writeModule(&b, "mod", &info.Main)
	for _, dep := range info.Deps {
		writeModule(&b, "dep", dep)
	}
	return b.String()
}

func writeModule(b *strings.Builder, kind string, m *debug.Module) {
	b.WriteString(" " + kind + "\t" + m.Path + "\t" + m.Version + "\t" + m.Sum)
	if r := m.Replace; r != nil {
		b.WriteString("\t=> " + r.Path + "\t" + r.Version + "\t" + r.Sum)
	}
	b.WriteByte('\n')
}
