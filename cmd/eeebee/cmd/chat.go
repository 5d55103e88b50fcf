package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/app"
	"github.com/edubull/eeebee/internal/config"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/report"
	"github.com/edubull/eeebee/internal/session"
	"github.com/spf13/cobra"
)

var chatFlags struct {
	org      string
	login    string
	password string
	topic    int
	role     string
	english  bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Log in and chat interactively",
	Long: `Log in against the school API and start a chat session.

Besides plain messages the prompt understands:
  /gaps               learning gap table (students)
  /baseline           baseline test report (students)
  /path <concept-id>  personalized learning path (students)
  /exam <concept-id> [L1-L5]  exam questions for the selected class (teachers)
  /pdf <file>         save the last generated document as PDF
  /quit               leave`,
	RunE: runChat,
}

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatFlags.org, "org", "", "organization code (default $EEEBEE_ORG_CODE)")
	f.StringVar(&chatFlags.login, "login", "", "login id (default $EEEBEE_LOGIN_ID)")
	f.StringVar(&chatFlags.password, "password", "", "password (default $EEEBEE_PASSWORD)")
	f.IntVar(&chatFlags.topic, "topic", 0, "topic id")
	f.StringVar(&chatFlags.role, "role", "student", "student or teacher")
	f.BoolVar(&chatFlags.english, "english", false, "English language mode")
	_ = chatCmd.MarkFlagRequired("topic")
}

func runChat(cmd *cobra.Command, args []string) error {
	fromEnv(&chatFlags.org, "EEEBEE_ORG_CODE")
	fromEnv(&chatFlags.login, "EEEBEE_LOGIN_ID")
	fromEnv(&chatFlags.password, "EEEBEE_PASSWORD")
	if chatFlags.org == "" || chatFlags.login == "" || chatFlags.password == "" {
		return errors.New("--org, --login and --password are required")
	}
	if chatFlags.role != "student" && chatFlags.role != "teacher" {
		return fmt.Errorf("unknown role %q", chatFlags.role)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("Failed to close services", "error", closeErr)
		}
	}()

	sess, greeting, err := a.Login(ctx, domain.Credentials{
		OrgCode:  chatFlags.org,
		LoginID:  chatFlags.login,
		Password: chatFlags.password,
		TopicID:  chatFlags.topic,
		Role:     domain.ParseRole(chatFlags.role),
		English:  chatFlags.english,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer a.Sessions.Delete(sess.ID)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, greeting)
	for _, p := range a.Agent.QuickPrompts(sess.Identity().Role) {
		fmt.Fprintf(out, "  > %s\n", p)
	}
	return runREPL(ctx, cmd.InOrStdin(), out, a.Agent, sess)
}

func fromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// tutor is the part of agent.Service the prompt drives.
type tutor interface {
	Route(ctx context.Context, sess *session.Session, raw string, emit agent.Emit) agent.Reply
	AnalyzeGaps(ctx context.Context, sess *session.Session) ([]agent.GapRow, error)
	Baseline(ctx context.Context, sess *session.Session) (*agent.BaselineResult, error)
	LearningPath(ctx context.Context, sess *session.Session, conceptID int) (*agent.Generated, error)
	ExamQuestions(ctx context.Context, sess *session.Session, conceptID int, bloom string) (*agent.Generated, error)
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, t tutor, sess *session.Session) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "\nyou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, out, t, sess, line); quit {
				return nil
			}
			continue
		}

		streamed := false
		fmt.Fprint(out, "eeebee> ")
		reply := t.Route(ctx, sess, line, func(delta string) {
			streamed = true
			fmt.Fprint(out, delta)
		})
		switch {
		case reply.Error && streamed:
			fmt.Fprintf(out, "\n%s\n", reply.Text)
		case !streamed:
			fmt.Fprintln(out, reply.Text)
		default:
			fmt.Fprintln(out)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func runCommand(ctx context.Context, out io.Writer, t tutor, sess *session.Session, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/gaps":
		rows, err := t.AnalyzeGaps(ctx, sess)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No concepts found.")
		}
		for _, r := range rows {
			fmt.Fprintf(out, "%-6d %-40s %-12s %s\n", r.ConceptID, r.ConceptText, r.Status, r.Remedial)
		}
	case "/baseline":
		res, err := t.Baseline(ctx, sess)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		fmt.Fprintln(out, agent.FormatBaseline(res.Report))
	case "/path", "/exam":
		if len(fields) < 2 {
			fmt.Fprintf(out, "usage: %s <concept-id>\n", fields[0])
			return false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(out, "invalid concept id %q\n", fields[1])
			return false
		}
		var g *agent.Generated
		if fields[0] == "/path" {
			g, err = t.LearningPath(ctx, sess, id)
		} else {
			bloom := ""
			if len(fields) > 2 {
				bloom = strings.ToUpper(fields[2])
			}
			g, err = t.ExamQuestions(ctx, sess, id, bloom)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "%s\n", g.Text)
		if g.Resources != nil {
			fmt.Fprintf(out, "\n%s\n", agent.FormatResources(g.Resources))
		}
	case "/pdf":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: /pdf <file>")
			return false
		}
		if err := savePDF(sess, fields[1]); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "saved %s\n", fields[1])
	default:
		fmt.Fprintf(out, "unknown command %s\n", fields[0])
	}
	return false
}

func savePDF(sess *session.Session, path string) (err error) {
	rep, ok := sess.Report()
	if !ok {
		return errors.New("nothing has been generated yet")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return report.Render(f, rep)
}
