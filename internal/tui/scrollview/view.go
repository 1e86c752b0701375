package scrollview

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcus/vscroll/internal/feedstore"
)

func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "loading…"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf(" feed  mode=%s  %d loaded ", m.Mgr.Mode(), len(m.VisibleSet.Items))))
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.Err)))
		b.WriteString("\n")
	}

	if m.VisibleSet.HasMorePreceding && m.vp.AtTop() {
		b.WriteString(helpStyle.Render("··· more above ···"))
		b.WriteString("\n")
	}

	b.WriteString(m.vp.View())
	b.WriteString("\n")

	if m.VisibleSet.HasMoreFollowing && m.vp.AtBottom() {
		b.WriteString(helpStyle.Render("··· more below ···"))
		b.WriteString("\n")
	}

	if m.ShowHelp {
		b.WriteString(helpStyle.Render("j/k: scroll  ?: toggle help  q: quit"))
	}

	return panelStyle.Width(m.Width - 2).Height(m.Height - 2).Render(b.String())
}

func (m Model) renderRow(index int, msg feedstore.Message) string {
	ts := time.Unix(msg.Timestamp, 0).Format("15:04:05")
	line := fmt.Sprintf("%s %s: %s", timestampStyle.Render(ts), senderStyle.Render(msg.Sender), msg.Body)
	if m.VisibleSet.Intersection != nil && m.VisibleSet.Intersection.Index == index {
		return anchorStyle.Render("▸ ") + line
	}
	return "  " + line
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
