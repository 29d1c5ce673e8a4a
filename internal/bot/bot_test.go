package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pawpal/internal/config"
	"pawpal/internal/metrics"
	"pawpal/internal/repository"
	"pawpal/internal/service"
)

const chatID int64 = 42

var testNow = time.Date(2026, 2, 12, 8, 0, 0, 0, time.Local)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	failFor map[int64]bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	if f.failFor[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

func (f *fakeAPI) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) contains(substr string) bool {
	for _, text := range f.texts() {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	bot       *Bot
	api       *fakeAPI
	household *service.HouseholdService
	metrics   *metrics.Registry
}

func newFixture(t *testing.T, cfg config.Config) fixture {
	t.Helper()
	store := repository.NewJSONStore(filepath.Join(t.TempDir(), "pawpal_data.json"))
	reg := metrics.NewRegistry(nil)
	scheduler := service.NewScheduler(service.WithClock(func() time.Time { return testNow }))
	household := service.NewHouseholdService(store, scheduler, reg, zerolog.Nop())
	if _, err := household.Bootstrap(context.Background(), "Jon"); err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	api := &fakeAPI{failFor: map[int64]bool{}}
	b := newBot(api, cfg, household, service.NewReminderService(household), reg, zerolog.Nop(), rate.NewLimiter(rate.Inf, 1))
	return fixture{bot: b, api: api, household: household, metrics: reg}
}

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:     &tgbotapi.User{ID: 7, FirstName: "Jon"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func reply(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: 7, FirstName: "Jon"},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
	}}
}

func (f fixture) run(updates ...tgbotapi.Update) {
	for _, u := range updates {
		f.bot.handleUpdate(context.Background(), u)
	}
}

func TestAddPetAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{})

	f.run(command("/addpet Odie Beagle 3 12.5"), command("/pets"))

	out := f.api.last().Text
	if !strings.Contains(out, "<b>Odie</b> · Beagle, 3 y., 12.5 kg · 0 open / 0 tasks") {
		t.Fatalf("unexpected /pets output: %q", out)
	}

	f.run(command("/addpet odie"))
	if !strings.Contains(f.api.last().Text, "already exists") {
		t.Fatalf("duplicate pet reply = %q", f.api.last().Text)
	}
}

func TestNewTaskConversation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{})
	f.run(command("/addpet Odie"))

	f.run(
		command("/newtask"),
		reply("🐾 Odie"),
		reply("Morning walk"),
		reply("abc"),
	)
	if !strings.Contains(f.api.last().Text, "between 1 and 240") {
		t.Fatalf("bad duration should reprompt, got %q", f.api.last().Text)
	}

	f.run(
		reply("30"),
		reply("🔴 high"),
		reply("daily"),
		reply("Tomorrow"),
		reply("07:30"),
		reply(btnSkip),
	)

	if !f.api.contains("Task saved") {
		t.Fatalf("task was not saved: %v", f.api.texts())
	}
	entries := f.household.ListTasks(service.TaskView{Sort: service.SortEntered})
	if len(entries) != 1 {
		t.Fatalf("got %d tasks, want 1", len(entries))
	}
	task := entries[0].Task
	if task.Name != "Morning walk" || task.Duration != 30 || task.Priority != "high" || task.Recurrence != "daily" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.DueDate == nil || task.DueDate.Format("2006-01-02") != "2026-02-13" {
		t.Fatalf("due date = %v", task.DueDate)
	}
	if task.StartTime == nil || task.StartTime.String() != "07:30" {
		t.Fatalf("start time = %v", task.StartTime)
	}
	if f.bot.getConversation(7) != nil {
		t.Fatal("conversation should be cleared")
	}
}

func TestCancelConversation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{})
	f.run(command("/addpet Odie"), command("/newtask"), reply(btnCancelDialog))

	if f.bot.getConversation(7) != nil {
		t.Fatal("conversation should be cleared")
	}
	if !strings.Contains(f.api.last().Text, "Input cancelled") {
		t.Fatalf("cancel reply = %q", f.api.last().Text)
	}
}

func TestCompleteCommandReportsSuccessor(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{})
	ctx := context.Background()
	if _, err := f.household.AddPet(ctx, service.PetInput{Name: "Garfield"}); err != nil {
		t.Fatal(err)
	}
	entry, err := f.household.AddTask(ctx, "Garfield", service.TaskInput{Name: "Feed", Duration: 10, DueDate: "2026-02-12", Recurrence: "weekly"})
	if err != nil {
		t.Fatal(err)
	}

	f.run(command("/complete " + entry.Task.ShortID()))

	out := f.api.last().Text
	if !strings.Contains(out, "is done") || !strings.Contains(out, "Next one is due 2026-02-19") {
		t.Fatalf("unexpected reply: %q", out)
	}

	f.run(command("/complete nope"))
	if !strings.Contains(f.api.last().Text, "Task not found") {
		t.Fatalf("missing task reply = %q", f.api.last().Text)
	}

	f.run(command("/complete " + entry.Task.ShortID()))
	if !strings.Contains(f.api.last().Text, "already done") {
		t.Fatalf("repeat completion reply = %q", f.api.last().Text)
	}
	if got := f.household.Pets()[0].NumTasks(); got != 2 {
		t.Fatalf("Garfield tasks = %d, want 2", got)
	}
}

func TestCallbackConfirmDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{})
	ctx := context.Background()
	if _, err := f.household.AddPet(ctx, service.PetInput{Name: "Odie"}); err != nil {
		t.Fatal(err)
	}
	entry, err := f.household.AddTask(ctx, "Odie", service.TaskInput{Name: "Bath", Duration: 20})
	if err != nil {
		t.Fatal(err)
	}

	f.run(callback(cbDeletePrefix + entry.Task.ID))
	if _, ok := f.bot.getConfirmation(7); !ok {
		t.Fatal("delete should wait for confirmation")
	}
	f.run(reply(btnConfirm))

	if _, err := f.household.GetTask(entry.Task.ID); !errors.Is(err, service.ErrTaskNotFound) {
		t.Fatalf("task should be deleted, got %v", err)
	}
	if !f.api.contains(`Task "Bath" deleted.`) {
		t.Fatalf("missing delete reply: %v", f.api.texts())
	}
}

func TestTaskListButtons(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{})
	ctx := context.Background()
	if _, err := f.household.AddPet(ctx, service.PetInput{Name: "Odie"}); err != nil {
		t.Fatal(err)
	}
	entry, err := f.household.AddTask(ctx, "Odie", service.TaskInput{Name: "Walk", Duration: 30})
	if err != nil {
		t.Fatal(err)
	}

	f.run(command("/tasks priority pet odie"))

	msg := f.api.last()
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("expected one button row, got %#v", msg.ReplyMarkup)
	}
	if data := markup.InlineKeyboard[0][0].CallbackData; data == nil || *data != cbCompletePrefix+entry.Task.ID {
		t.Fatalf("complete button data = %v", data)
	}

	f.run(command("/tasks sideways"))
	if !strings.Contains(f.api.last().Text, "unknown sort") {
		t.Fatalf("bad sort reply = %q", f.api.last().Text)
	}
}

func TestDisallowedChatIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{ChatIDs: []int64{1}})

	f.run(command("/pets"))

	if got := len(f.api.texts()); got != 0 {
		t.Fatalf("sent %d messages to a chat outside the allow-list", got)
	}
}

func TestSendDailyReports(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.Config{ChatIDs: []int64{chatID, 99}})
	f.api.failFor[99] = true

	if err := f.bot.SendDailyReports(context.Background()); err != nil {
		t.Fatalf("SendDailyReports error: %v", err)
	}
	if !strings.Contains(f.api.last().Text, "Daily plan for Jon") {
		t.Fatalf("report text = %q", f.api.last().Text)
	}
	if got := testutil.ToFloat64(f.metrics.ReportsSent.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok reports = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.ReportsSent.WithLabelValues("error")); got != 1 {
		t.Fatalf("failed reports = %v", got)
	}
}

func TestParseTaskView(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    service.TaskView
		wantErr bool
	}{
		{raw: "", want: service.TaskView{Sort: service.SortDue, Filter: service.FilterNone}},
		{raw: "pet overdue", want: service.TaskView{Sort: service.SortPet, Filter: service.FilterOverdue}},
		{raw: "due pet Mr Fluffy", want: service.TaskView{Sort: service.SortDue, Filter: service.FilterPet, Pet: "Mr Fluffy"}},
		{raw: "due priority HIGH", want: service.TaskView{Sort: service.SortDue, Filter: service.FilterPriority, Priority: "high"}},
		{raw: "due pet", wantErr: true},
		{raw: "due priority urgent", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseTaskView(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Fatalf("parseTaskView(%q) err = %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("parseTaskView(%q) = %+v, %v", tt.raw, got, err)
		}
	}
}

func TestHelpers(t *testing.T) {
	t.Parallel()
	if got := shortTitle("Give the cat its medicine", 10); got != "Give the …" {
		t.Fatalf("shortTitle = %q", got)
	}
	if got := stripIcon("🐾 Mr Fluffy"); got != "Mr Fluffy" {
		t.Fatalf("stripIcon = %q", got)
	}
	if got := stripIcon("Mr Fluffy"); got != "Mr Fluffy" {
		t.Fatalf("stripIcon plain = %q", got)
	}
	if got, _ := parseDueDate("today", testNow); got != "2026-02-12" {
		t.Fatalf("parseDueDate(today) = %q", got)
	}
	if _, err := parseDueDate("next week", testNow); err == nil {
		t.Fatal("expected an error for free text dates")
	}
	if _, err := parsePetArgs("Odie Beagle old"); err == nil {
		t.Fatal("expected an error for a non-numeric age")
	}
}
