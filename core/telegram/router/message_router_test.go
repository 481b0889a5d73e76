package router

import (
	"testing"

	tg "github.com/m3rciful/cpgamebot/core/telegram"
	"github.com/m3rciful/cpgamebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T, routes []tg.Route) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	for _, r := range routes {
		bot.Handle(r.Endpoint, r.Handler)
	}
	return bot
}

func TestMessageRoutesReachEveryMessageKind(t *testing.T) {
	var got []*tele.Message
	bot := offlineBot(t, MessageRoutes(tg.NewRegistry(), MessageOptions{
		OnMessage: func(c tele.Context) error {
			got = append(got, c.Message())
			return nil
		},
	}))

	photo := &tele.Photo{}
	photo.FileID = "p"
	tests := map[string]*tele.Message{
		"text":     {Text: "CP 120"},
		"photo":    {Photo: photo},
		"video":    {Video: &tele.Video{}},
		"location": {Location: &tele.Location{Lat: 51.5, Lng: -0.1}},
		"venue":    {Venue: &tele.Venue{Title: "Gym"}, Location: &tele.Location{Lat: 1, Lng: 1}},
		"contact":  {Contact: &tele.Contact{PhoneNumber: "+100", FirstName: "Oak"}},
		"dice":     {Dice: &tele.Dice{Type: "🎲", Value: 6}},
		"poll":     {Poll: &tele.Poll{Question: "CP?"}},
	}
	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			got = nil
			m.ID = 1
			m.Sender = &tele.User{ID: 5}
			m.Chat = &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}
			bot.ProcessUpdate(tele.Update{ID: 10, Message: m})
			if len(got) != 1 || got[0] != m {
				t.Fatalf("%s reached OnMessage %d times", name, len(got))
			}
		})
	}
}

func TestMessageRoutesSkipCommandText(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/number", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Next number",
	})
	calls := 0
	routes := MessageRoutes(reg, MessageOptions{
		OnMessage: func(tele.Context) error { calls++; return nil },
	})

	var text tele.HandlerFunc
	for _, r := range routes {
		if r.Endpoint == tele.OnText {
			text = r.Handler
		}
	}
	bot := offlineBot(t, nil)
	msg := &tele.Message{ID: 2, Text: "/number extra", Sender: &tele.User{ID: 5}, Chat: &tele.Chat{ID: -100}}
	if err := text(bot.NewContext(tele.Update{ID: 11, Message: msg})); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatal("command text reached OnMessage")
	}

	msg.Text = "number"
	if err := text(bot.NewContext(tele.Update{ID: 12, Message: msg})); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatal("plain text without a slash should reach OnMessage")
	}
}
