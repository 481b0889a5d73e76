package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/cpgamebot/core/telegram/format"
	"github.com/m3rciful/cpgamebot/internal/game"

	tele "gopkg.in/telebot.v4"
)

const (
	textNoLiveGame   = "There is no live game on."
	textInvalidStart = "The CP game can only start on a number between 10 and 3500."
	textPaused       = "Pausing active game."
	textPauseReset   = "There is an issue with your pausing your current game, all progress has been lost."
	textNothingToDo  = "No active game! Nothing to do."
	textNoValidGame  = "No valid game! Please use the /startgame command to create a new game."
	textNoGameToEnd  = "No valid game to end."
	textEnding       = "Ending game. All progress will be lost."
	acceptReaction   = "👍"
)

var tierComments = map[game.Tier]string{
	game.TierFutile:      "What a futile attempt.",
	game.TierGoodGo:      "You gave it a good go!",
	game.TierCloseToEnd:  "Sorry to see you giving up so close to the end.",
	game.TierHairAway:    "You're just a hair away and you're giving up. You must be Instinct.",
	game.TierOverHundred: "You made it over 100%? What is this black magic.",
}

func nextNumberText(n int) string {
	return fmt.Sprintf("The next number is %d.", n)
}

func startedText(start int) string {
	return fmt.Sprintf("Creating a new game starting at CP%d.", start)
}

func resumedText(n int) string {
	return fmt.Sprintf("Continuing active game, the next number is %d.", n)
}

func pauseText(res game.PauseResult) string {
	switch res {
	case game.PauseApplied:
		return textPaused
	case game.PauseReset:
		return textPauseReset
	}
	return textNothingToDo
}

func endText(r game.EndReport) string {
	line := strings.TrimSpace(fmt.Sprintf("You completed %d%%! %s", r.Percent(), tierComments[r.Tier]))
	return textEnding + "\n" + line
}

// rejectNotice renders the MarkdownV2 notice for a deleted submission.
// Malformed messages are removed silently and get no notice.
func rejectNotice(v game.Verdict, author string) (string, bool) {
	switch v.Reason {
	case game.ReasonConsecutive:
		return format.V2f("Deleted a screenshot by %s as the last submission was submitted by them.", author), true
	case game.ReasonUnreadable:
		return format.V2f("Deleted a screenshot by %s as the CP couldn't be detected.", author), true
	case game.ReasonWrongNumber:
		return format.V2f("Deleted screenshot by %s as we're looking for CP%d not CP%d.", author, v.Expected, v.Got), true
	}
	return "", false
}

// completionText congratulates the finisher and, when known, the player
// who submitted the number before them.
func completionText(finisher, previous string) string {
	if previous == "" {
		return format.V2f("Well done %s and company, you completed The CP Game", finisher)
	}
	return format.V2f("Well done %s, %s and company, you completed The CP Game", finisher, previous)
}

func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	return name
}

func mention(u *tele.User) string {
	if u == nil {
		return format.MentionV2("", 0)
	}
	return format.MentionV2(displayName(u), u.ID)
}
