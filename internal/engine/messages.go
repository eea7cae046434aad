package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

const (
	msgBanned = "🚫 You are banned from using this bot."

	msgQuotaExhausted = "⚠️ You've already used your free redeem!\n\n" +
		"💎 Upgrade to Premium for unlimited redeems.\n" +
		"Tap 💎 Buy Premium to learn more."

	msgRedeemPrompt = "📝 Please send your account details in one message:\n\n" +
		"Service / Email / Password\n\n" +
		"Example:\nNetflix / john@mail.com / mypassword123\n\n" +
		"Send /cancel to abort."

	msgDetailsEmpty = "Please type your account details, or send /cancel to abort."

	msgCancelled = "❎ Cancelled. Back to the main menu."

	msgNothingToCancel = "Nothing to cancel. Use the menu below 👇"
)

func requestApprovedMessage(requestID int64) string {
	return fmt.Sprintf(
		"✅ Your redeem request #%d has been approved!\n"+
			"Our team will deliver your account shortly.",
		requestID,
	)
}

func requestRejectedMessage(requestID int64, reason string) string {
	return fmt.Sprintf("❌ Your redeem request #%d was rejected.\nReason: %s", requestID, reason)
}

func keyRedeemedMessage(until time.Time) string {
	return fmt.Sprintf(
		"🎉 Premium activated!\n"+
			"⏳ Valid until: %s\n\n"+
			"You now have unlimited redeems.",
		until.Format("2006-01-02 15:04 MST"),
	)
}

func redeemSubmittedMessage(requestID int64) string {
	return fmt.Sprintf(
		"✅ Your redeem request #%d has been submitted!\n"+
			"⏳ Please wait while an admin reviews it.",
		requestID,
	)
}

func premiumPitchMessage(price int, currency string) string {
	return fmt.Sprintf(
		"💎 Premium Membership\n\n"+
			"✨ Unlimited redeems\n"+
			"⚡ Priority review of your requests\n\n"+
			"💰 Price: %s%d\n\n"+
			"Contact an admin to purchase, or redeem a premium key with:\n"+
			"/key YOUR-KEY",
		currency, price,
	)
}

func adminRedeemAlert(req *domain.RedeemRequest) string {
	username := req.Username
	if username == "" {
		username = "unknown"
	}

	return fmt.Sprintf(
		"📬 New redeem request #%d\n"+
			"👤 User: @%s (%d)\n"+
			"📄 Details: %s\n\n"+
			"Decide with:\n"+
			"/approve %d\n"+
			"/reject %d <reason>",
		req.ID, username, req.UserID, req.Details, req.ID, req.ID,
	)
}

func statusMessage(user *domain.User, now time.Time) string {
	var b strings.Builder

	b.WriteString("👤 Your Status\n\n")

	if user.PremiumActive(now) {
		b.WriteString("💎 Premium: active\n")
		fmt.Fprintf(&b, "⏳ Valid until: %s\n", user.PremiumUntil.Format("2006-01-02 15:04 MST"))
		b.WriteString("♾ Redeems: unlimited")
		return b.String()
	}

	b.WriteString("💎 Premium: not active\n")
	if user.RedeemUsed {
		b.WriteString("🎟 Free redeem: used")
	} else {
		b.WriteString("🎟 Free redeem: available")
	}

	return b.String()
}

func keyGeneratedMessage(key *domain.PremiumKey) string {
	return fmt.Sprintf(
		"🔑 Premium key generated\n\n"+
			"`%s`\n\n"+
			"📅 Grants: %d days\n"+
			"⌛ Redeem before: %s",
		key.Key, key.Days, key.ExpiresAt.Format("2006-01-02 15:04 MST"),
	)
}
