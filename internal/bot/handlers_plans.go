// internal/bot/handlers_plans.go
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/trading"
)

// maxDCAMinutes caps the DCA interval at one year.
const maxDCAMinutes = 365 * 24 * 60

const (
	dcaHelpText = "*DCA Trading*\n\n" +
		"Commands:\n" +
		"/dcastart - Start DCA\n" +
		"/dcastop - Stop DCA\n" +
		"/dcasettings - Configure DCA"
	dcaPromptText  = "⚙️ *DCA Settings*\n\nSend the amount (SOL) and the interval in minutes, e.g. `0.5 60`:"
	dcaInvalidText = "❌ Invalid DCA settings.\n\nUsage: /dcasettings <amount> <interval_minutes>"
	dcaMissingText = "Configure DCA first with /dcasettings"

	sniperLaunchLabText = "*Sniper LaunchLab*\n\n" +
		"Commands:\n" +
		"/setsymbol <symbol> - Set token symbol\n" +
		"/setdev <wallet> - Set dev wallet\n" +
		"/setmax <amount> - Set max SOL amount\n" +
		"/snipe <amount> - Start sniping"
	sniperMoonshotText = "*Sniper Moonshot*\n\nUse text commands to configure and start sniping."
	sniperPumpfunText  = "*Sniper Pumpfun*\n\nUse text commands to configure and start sniping."
	sniperV2Text       = "*Sniper V2*\n\nAdvanced sniping features. Use text commands to configure."

	toolsPromptText  = "🧰 *Trading Tools*\n\nSend the tool name, optionally followed by `key=value` settings, e.g. `trailing_stop percent=5`:"
	toolsInvalidText = "❌ Invalid tool.\n\nUsage: /tools <name> [key=value ...]"
)

var toolNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

func (e *Engine) registerPlanRoutes() {
	e.commands.Register("dca", "Dollar-cost averaging overview", e.handleDCA)
	e.commands.Register("dcasettings", "Configure DCA amount and interval", e.handleDCASettings)
	e.commands.Register("dcastart", "Activate DCA", e.handleDCAStart)
	e.commands.Register("dcastop", "Deactivate DCA", e.handleDCAStop)
	e.commands.Register("sniper_v1", "Create a V1 sniper for a token", e.handleSniperV1)
	e.commands.Register("sniper_launchlab", "LaunchLab sniper", e.sniperInfo("launchlab", sniperLaunchLabText))
	e.commands.Register("sniper_moonshot", "Moonshot sniper", e.sniperInfo("moonshot", sniperMoonshotText))
	e.commands.Register("sniper_pumpfun", "Pumpfun sniper", e.sniperInfo("pumpfun", sniperPumpfunText))
	e.commands.Register("sniper_v2", "V2 sniper", e.sniperInfo("v2", sniperV2Text))
	e.commands.Register("tools", "Select a trading tool", e.handleTools)
}

func (e *Engine) handleDCA(ctx context.Context, req *Request) error {
	return e.replyText(ctx, req, dcaHelpText)
}

func (e *Engine) handleDCASettings(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, dcaPromptText, session.AwaitingDCASettings)
	}
	return e.answerDCASettings(ctx, req, strings.Join(req.Args, " "))
}

func (e *Engine) answerDCASettings(ctx context.Context, req *Request, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return e.replyText(ctx, req, dcaInvalidText)
	}
	amount, problem := parsePositive(fields[0])
	if problem != inputOK {
		return e.replyText(ctx, req, dcaInvalidText)
	}
	if _, err := trading.ParseAmount(amount); err != nil {
		return e.replyText(ctx, req, dcaInvalidText)
	}
	minutes, err := strconv.Atoi(fields[1])
	if err != nil || minutes <= 0 || minutes > maxDCAMinutes {
		return e.replyText(ctx, req, dcaInvalidText)
	}

	updated := e.store.Update(req.UserID, func(s *session.Session) {
		s.DCA = &session.DCAConfig{
			Amount:   amount,
			Interval: time.Duration(minutes) * time.Minute,
			Pair:     s.SelectedPair,
		}
	})

	pair := "not set"
	if updated.DCA.Pair != "" {
		pair = updated.DCA.Pair
	}
	return e.replyText(ctx, req, fmt.Sprintf(
		"✅ *DCA configured*\n\nAmount: `%s SOL`\nInterval: every `%d` minutes\nPair: `%s`\n\nUse /dcastart to activate.",
		formatAmount(amount), minutes, pair))
}

func (e *Engine) handleDCAStart(ctx context.Context, req *Request) error {
	return e.toggleDCA(ctx, req, true)
}

func (e *Engine) handleDCAStop(ctx context.Context, req *Request) error {
	return e.toggleDCA(ctx, req, false)
}

func (e *Engine) toggleDCA(ctx context.Context, req *Request, active bool) error {
	updated := e.store.Update(req.UserID, func(s *session.Session) {
		if s.DCA != nil {
			s.DCA.Active = active
		}
	})
	if updated.DCA == nil {
		return e.replyText(ctx, req, dcaMissingText)
	}
	if active {
		return e.replyText(ctx, req, fmt.Sprintf("▶️ DCA started: `%s SOL` every `%d` minutes.",
			formatAmount(updated.DCA.Amount), int(updated.DCA.Interval/time.Minute)))
	}
	return e.replyText(ctx, req, "⏹ DCA stopped.")
}

func (e *Engine) handleSniperV1(ctx context.Context, req *Request) error {
	updated := e.store.Update(req.UserID, func(s *session.Session) {
		if s.Sniper == nil {
			s.Sniper = &session.SniperConfig{}
		}
		s.Sniper.Version = "v1"
	})
	text := fmt.Sprintf("*Sniper V1*\n\nActive Snipers: %d\n\nPaste token address to create new sniper!",
		len(updated.Sniper.V1Targets))
	return e.prompt(ctx, req, text, session.AwaitingSniperV1Address)
}

func (e *Engine) answerSniperV1(ctx context.Context, req *Request, text string) error {
	address, err := solana.PublicKeyFromBase58(text)
	if err != nil {
		return e.replyText(ctx, req, "❌ Invalid token address.\n\nUse /sniper_v1 to try again.")
	}

	updated := e.store.Update(req.UserID, func(s *session.Session) {
		if s.Sniper == nil {
			s.Sniper = &session.SniperConfig{Version: "v1"}
		}
		s.Sniper.V1Targets = lo.Uniq(append(s.Sniper.V1Targets, address.String()))
	})
	return e.replyText(ctx, req, fmt.Sprintf("✅ Sniper V1 armed for `%s`\n\nActive Snipers: %d",
		address, len(updated.Sniper.V1Targets)))
}

func (e *Engine) sniperInfo(version, text string) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		e.store.Update(req.UserID, func(s *session.Session) {
			if s.Sniper == nil {
				s.Sniper = &session.SniperConfig{}
			}
			s.Sniper.Version = version
		})
		return e.replyText(ctx, req, text)
	}
}

func (e *Engine) handleTools(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, toolsPromptText, session.AwaitingToolName)
	}
	return e.answerTool(ctx, req, strings.Join(req.Args, " "))
}

func (e *Engine) answerTool(ctx context.Context, req *Request, text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return e.replyText(ctx, req, toolsInvalidText)
	}
	name := strings.ToLower(fields[0])
	if !toolNamePattern.MatchString(name) {
		return e.replyText(ctx, req, toolsInvalidText)
	}

	settings := make(map[string]string, len(fields)-1)
	for _, kv := range fields[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return e.replyText(ctx, req, toolsInvalidText)
		}
		settings[codeSafe(key)] = codeSafe(value)
	}

	e.store.Update(req.UserID, func(s *session.Session) {
		s.Tool = &session.ToolConfig{Name: name, Settings: settings}
	})

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Tool `%s` selected", name)
	keys := lo.Keys(settings)
	if len(keys) > 0 {
		b.WriteString("\n")
		for _, k := range sortedStrings(keys) {
			fmt.Fprintf(&b, "\n• `%s` = `%s`", k, settings[k])
		}
	}
	return e.replyText(ctx, req, b.String())
}
