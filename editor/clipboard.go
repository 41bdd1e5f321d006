package editor

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/atotto/clipboard"
)

// CopyToClipboard exports copied items to the system clipboard. On macOS
// pbcopy is tried first since it works in more terminals than the library.
var CopyToClipboard = firstWriter(systemWriters()...)

func systemWriters() []func(string) error {
	var writers []func(string) error
	if runtime.GOOS == "darwin" {
		writers = append(writers, pbcopy)
	}
	if !clipboard.Unsupported {
		writers = append(writers, clipboard.WriteAll)
	}
	return writers
}

func pbcopy(text string) error {
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// firstWriter tries each writer in turn and succeeds on the first that does
func firstWriter(writers ...func(string) error) func(string) error {
	return func(text string) error {
		if len(writers) == 0 {
			return fault.New("no clipboard",
				fmsg.WithDesc("no clipboard", "No system clipboard is available; copies stay inside beatgrid"))
		}
		var last error
		for _, w := range writers {
			if last = w(text); last == nil {
				return nil
			}
		}
		return fault.Wrap(last,
			fmsg.WithDesc("write clipboard", "Could not copy to the system clipboard"))
	}
}
