package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
)

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	faint   = color.New(color.Faint)
	unread  = color.New(color.FgCyan, color.Bold)
)

func printSuccess(format string, args ...interface{}) {
	success.Printf("✓ "+format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	failure.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printInbox writes one line per notification, unread entries marked
func printInbox(w io.Writer, page *InboxPage) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No notifications")
		return
	}
	for _, item := range page.Items {
		marker := "  "
		if !item.Notification.IsRead {
			marker = unread.Sprint("● ")
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, bold.Sprint(item.Message.Header), faint.Sprint(age(item.Notification.CreatedAt)))
		if item.Message.Body != "" {
			fmt.Fprintf(w, "    %s\n", item.Message.Body)
		}
		fmt.Fprintf(w, "    %s\n", faint.Sprint(item.Notification.ID))
	}
	more := ""
	if page.HasNext {
		more = fmt.Sprintf(", next: --page %d", page.Page+1)
	}
	fmt.Fprintf(w, "\nPage %d, %d total%s\n", page.Page, page.Total, more)
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2")
	}
}
