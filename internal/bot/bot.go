package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pawpal/internal/config"
	"pawpal/internal/metrics"
	"pawpal/internal/model"
	"pawpal/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stagePet
	stageName
	stageDuration
	stagePriority
	stageRecurrence
	stageDueDate
	stageStartTime
	stageDescription
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
)

// Telegram allows about 30 messages per second per bot; stay well below.
const (
	sendRate  = 20
	sendBurst = 5
)

type conversationState struct {
	stage conversationStage
	pet   string
	input service.TaskInput
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID string
	action confirmationAction
}

// sender is the part of the Telegram API the handlers need.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	client        *tgbotapi.BotAPI
	api           sender
	household     *service.HouseholdService
	reminders     *service.ReminderService
	config        config.Config
	metrics       *metrics.Registry
	limiter       *rate.Limiter
	log           zerolog.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(cfg config.Config, household *service.HouseholdService, reminders *service.ReminderService, reg *metrics.Registry, log zerolog.Logger) (*Bot, error) {
	if err := cfg.ValidateBot(); err != nil {
		return nil, err
	}
	client, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(client, cfg, household, reminders, reg, log, rate.NewLimiter(rate.Limit(sendRate), sendBurst))
	b.client = client
	b.log.Info().Str("account", client.Self.UserName).Msg("bot authorized")
	return b, nil
}

func newBot(api sender, cfg config.Config, household *service.HouseholdService, reminders *service.ReminderService, reg *metrics.Registry, log zerolog.Logger, limiter *rate.Limiter) *Bot {
	return &Bot{
		api:           api,
		household:     household,
		reminders:     reminders,
		config:        cfg,
		metrics:       reg,
		limiter:       limiter,
		log:           log.With().Str("component", "bot").Logger(),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return errors.New("bot: telegram client not configured")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error().Err(err).Msg("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !b.config.AllowsChat(update.Message.Chat.ID) {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Msg("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(ctx, msg.Chat.ID, "⏪ Input cancelled. Start again whenever you like.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Debug().Int64("user", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command received")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		b.log.Debug().Int64("user", msg.From.ID).Int("stage", int(state.stage)).Msg("conversation step")
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(ctx, msg.Chat.ID, "I did not get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(ctx, msg)
	case "pets":
		return b.handlePets(ctx, msg)
	case "addpet":
		return b.handleAddPet(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "plan":
		return b.handlePlan(ctx, msg)
	case "conflicts":
		return b.handleConflicts(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(ctx, msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(ctx, msg.Chat.ID, "Unknown command. Have a look at /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "friend"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep %s's pet care on schedule.</b>\n\n%s",
		escape(name), escape(b.household.OwnerName()), commandList)
	return b.sendText(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	return b.sendText(ctx, msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+commandList)
}

const commandList = "• /pets · list pets\n" +
	"• /addpet &lt;name&gt; [breed] [age] [weight] · add a pet\n" +
	"• /newtask · add a task step by step\n" +
	"• /tasks [sort] [filter] [arg] · list tasks, e.g. /tasks due pet Odie\n" +
	"• /plan · today's prioritized plan\n" +
	"• /conflicts · overlapping appointments\n" +
	"• /complete &lt;id&gt; · mark a task done\n" +
	"• /delete &lt;id&gt; · delete a task\n" +
	"• /report · send the daily summary now\n" +
	"• /cancel · cancel the current input"

func (b *Bot) handlePets(ctx context.Context, msg *tgbotapi.Message) error {
	pets := b.household.Pets()
	if len(pets) == 0 {
		return b.sendText(ctx, msg.Chat.ID, "No pets yet. Add one with /addpet Odie Beagle 3")
	}
	var builder strings.Builder
	builder.WriteString("🐾 <b>Pets</b>\n")
	for _, p := range pets {
		builder.WriteString(formatPet(p))
	}
	return b.sendText(ctx, msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleAddPet(ctx context.Context, msg *tgbotapi.Message) error {
	in, err := parsePetArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(ctx, msg.Chat.ID, escape(err.Error()))
	}
	pet, err := b.household.AddPet(ctx, in)
	if err != nil {
		return b.sendText(ctx, msg.Chat.ID, describeError(err))
	}
	return b.sendText(ctx, msg.Chat.ID, fmt.Sprintf("✅ Added %s.", escape(pet.Name)))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	text := b.reminders.DailySummary(b.household.Scheduler().Now())
	return b.sendText(ctx, msg.Chat.ID, text)
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) error {
	plan := b.household.Plan()
	text := fmt.Sprintf("🗓 <b>Plan</b>\n<pre>%s</pre>", escape(b.household.Explain(plan)))
	return b.sendText(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleConflicts(ctx context.Context, msg *tgbotapi.Message) error {
	warnings := b.household.Conflicts()
	if len(warnings) == 0 {
		return b.sendText(ctx, msg.Chat.ID, "✅ No scheduling conflicts.")
	}
	var builder strings.Builder
	builder.WriteString("🚧 <b>Conflicts</b>\n")
	for _, w := range warnings {
		builder.WriteString(escape(w))
		builder.WriteByte('\n')
	}
	return b.sendText(ctx, msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	pets := b.household.Pets()
	if len(pets) == 0 {
		return b.sendText(ctx, msg.Chat.ID, "Add a pet first: /addpet &lt;name&gt;")
	}
	b.log.Debug().Int64("user", msg.From.ID).Msg("start new task conversation")
	b.setConversation(msg.From.ID, &conversationState{stage: stagePet})
	return b.sendWithReplyMarkup(ctx, msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> which pet is it for?", petKeyboard(pets))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	chatID := msg.Chat.ID

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stagePet:
		pet := b.findPet(text)
		if pet == nil {
			return b.sendWithReplyMarkup(ctx, chatID, "I do not know that pet. Pick one from the keyboard.", petKeyboard(b.household.Pets()))
		}
		state.pet = pet.Name
		state.stage = stageName
		return b.sendWithReplyMarkup(ctx, chatID, "<b>Step 2:</b> what is the task called?", cancelKeyboard())
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(ctx, chatID, "The name cannot be empty.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageDuration
		return b.sendWithReplyMarkup(ctx, chatID, "⏱ How many minutes does it take?", cancelKeyboard())
	case stageDuration:
		minutes, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(text, "min")))
		if err != nil || minutes < 1 || minutes > 240 {
			return b.sendWithReplyMarkup(ctx, chatID, "Send a whole number of minutes between 1 and 240.", cancelKeyboard())
		}
		state.input.Duration = minutes
		state.stage = stagePriority
		return b.sendWithReplyMarkup(ctx, chatID, "❗ How important is it?", priorityKeyboard())
	case stagePriority:
		p, err := model.ParsePriority(stripIcon(text))
		if err != nil {
			return b.sendWithReplyMarkup(ctx, chatID, "Pick high, medium or low.", priorityKeyboard())
		}
		state.input.Priority = p.String()
		state.stage = stageRecurrence
		return b.sendWithReplyMarkup(ctx, chatID, "🔁 How often does it repeat?", recurrenceKeyboard())
	case stageRecurrence:
		r, err := model.ParseRecurrence(text)
		if err != nil {
			return b.sendWithReplyMarkup(ctx, chatID, "Pick one of the options on the keyboard.", recurrenceKeyboard())
		}
		state.input.Recurrence = r.String()
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(ctx, chatID, "📅 Due date as <code>2026-03-01</code>, or today / tomorrow (or «Skip»).", dateKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := parseDueDate(text, b.household.Scheduler().Now())
			if err != nil {
				return b.sendWithReplyMarkup(ctx, chatID, "I cannot read that date. Use <code>2026-03-01</code> or «Skip».", dateKeyboard())
			}
			state.input.DueDate = due
		}
		state.stage = stageStartTime
		return b.sendWithReplyMarkup(ctx, chatID, "🕒 Fixed start time as <code>14:30</code> (or «Skip»).", skipKeyboard())
	case stageStartTime:
		if !isSkipInput(text) {
			start, err := model.ParseClockTime(text)
			if err != nil {
				return b.sendWithReplyMarkup(ctx, chatID, "Use HH:MM, for example <code>08:15</code>, or «Skip».", skipKeyboard())
			}
			state.input.StartTime = start.String()
		}
		state.stage = stageDescription
		return b.sendWithReplyMarkup(ctx, chatID, "✏️ Add a short note (or «Skip»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		err := b.finishTaskCreation(ctx, chatID, state.pet, state.input)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(ctx, chatID, "The dialog was reset. Try /newtask again.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, pet string, input service.TaskInput) error {
	entry, err := b.household.AddTask(ctx, pet, input)
	if err != nil {
		return b.sendTextWithRemove(ctx, chatID, fmt.Sprintf("Could not save the task: %s", describeError(err)))
	}

	text := "✅ <b>Task saved</b>\n" + service.FormatEntryHTML(entry, b.household.Scheduler().Now())
	if err := b.sendTextWithRemove(ctx, chatID, strings.TrimSpace(text)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, service.TaskView{Sort: service.SortDue, Filter: service.FilterNone})
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	view, err := parseTaskView(msg.CommandArguments())
	if err != nil {
		return b.sendText(ctx, msg.Chat.ID, describeError(err))
	}
	return b.sendTaskList(ctx, msg.Chat.ID, view)
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(ctx, msg.Chat.ID, "Give me the task id: /complete 3f2a9c1b")
	}
	result, err := b.household.CompleteTask(ctx, ref)
	if err != nil {
		return b.sendText(ctx, msg.Chat.ID, describeError(err))
	}
	return b.sendText(ctx, msg.Chat.ID, completionText(result))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(ctx, msg.Chat.ID, "Give me the task id: /delete 3f2a9c1b")
	}
	entry, err := b.household.DeleteTask(ctx, ref)
	if err != nil {
		return b.sendText(ctx, msg.Chat.ID, describeError(err))
	}
	return b.sendText(ctx, msg.Chat.ID, fmt.Sprintf("🗑 Task %q deleted.", escape(entry.Task.Name)))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, req.taskID)
		}
		return b.completeTaskAndRefresh(ctx, msg.Chat.ID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(ctx, msg.Chat.ID)
	default:
		prompt := "Confirm or cancel completing the task."
		if req.action == actionDelete {
			prompt = "Confirm or cancel deleting the task."
		}
		return b.sendWithReplyMarkup(ctx, msg.Chat.ID, prompt, confirmKeyboard())
	}
}

// SendDailyReports sends the daily summary to every configured chat.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	if len(b.config.ChatIDs) == 0 {
		b.log.Warn().Msg("no chat ids configured, daily report skipped")
		return nil
	}
	text := b.reminders.DailySummary(b.household.Scheduler().Now())
	var failed int
	for _, chatID := range b.config.ChatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(ctx, chatID, text); err != nil {
			failed++
			b.countReport("error")
			b.log.Error().Err(err).Int64("chat", chatID).Msg("send summary")
			continue
		}
		b.countReport("ok")
	}
	if failed == len(b.config.ChatIDs) {
		return fmt.Errorf("daily report failed for all %d chats", failed)
	}
	return nil
}

func (b *Bot) countReport(status string) {
	if b.metrics != nil {
		b.metrics.ReportsSent.WithLabelValues(status).Inc()
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if !b.config.AllowsChat(cb.Message.Chat.ID) {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	b.log.Debug().Int64("user", cb.From.ID).Str("data", data).Msg("callback received")

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		return b.askConfirmation(ctx, chatID, cb.From.ID, strings.TrimPrefix(data, cbCompletePrefix), actionComplete)
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.askConfirmation(ctx, chatID, cb.From.ID, strings.TrimPrefix(data, cbDeletePrefix), actionDelete)
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.clearConfirmation(cb.From.ID)
		return b.completeTaskAndRefresh(ctx, chatID, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(cb.From.ID)
		return nil
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID, userID int64, ref string, action confirmationAction) error {
	entry, err := b.household.GetTask(ref)
	if err != nil {
		return b.sendText(ctx, chatID, describeError(err))
	}

	var text string
	if action == actionDelete {
		text = fmt.Sprintf("Delete %q for %s?", escape(entry.Task.Name), escape(entry.PetName))
	} else {
		if entry.Task.Completed {
			return b.sendText(ctx, chatID, "That task is already done.")
		}
		text = fmt.Sprintf("Mark %q for %s as done?", escape(entry.Task.Name), escape(entry.PetName))
	}
	b.setConfirmation(userID, confirmationRequest{taskID: entry.Task.ID, action: action})
	return b.sendWithReplyMarkup(ctx, chatID, text, confirmKeyboard())
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	result, err := b.household.CompleteTask(ctx, taskID)
	if err != nil {
		return b.sendTextWithRemove(ctx, chatID, describeError(err))
	}
	if err := b.sendTextWithRemove(ctx, chatID, completionText(result)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, service.TaskView{Sort: service.SortDue, Filter: service.FilterNone})
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	entry, err := b.household.DeleteTask(ctx, taskID)
	if err != nil {
		return b.sendTextWithRemove(ctx, chatID, describeError(err))
	}
	if err := b.sendTextWithRemove(ctx, chatID, fmt.Sprintf("🗑 Task %q deleted.", escape(entry.Task.Name))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, service.TaskView{Sort: service.SortDue, Filter: service.FilterNone})
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, view service.TaskView) error {
	entries := b.household.ListTasks(view)
	if len(entries) == 0 {
		return b.sendText(ctx, chatID, "No tasks match. Add one with /newtask.")
	}

	now := b.household.Scheduler().Now()
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Tasks</b> · sorted by %s", view.Sort))
	if view.Filter != service.FilterNone && view.Filter != "" {
		builder.WriteString(fmt.Sprintf(", %s", view.Filter))
	}
	builder.WriteString("\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		builder.WriteString(service.FormatEntryHTML(e, now))
		builder.WriteByte('\n')
		if e.Task.Completed {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(e.Task.Name, 24), cbCompletePrefix+e.Task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+e.Task.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	return b.send(ctx, msg)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelPlan):
		return true, b.handlePlan(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(ctx, msg)
	default:
		return false, nil
	}
}

func (b *Bot) findPet(name string) *model.Pet {
	name = stripIcon(name)
	for _, p := range b.household.Pets() {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.api.Send(c)
	return err
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	return b.send(ctx, msg)
}

func (b *Bot) sendTextWithRemove(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if err := b.send(ctx, msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(ctx, chatID)
}

func (b *Bot) sendWithReplyMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	return b.send(ctx, msg)
}

func (b *Bot) sendMenuPlaceholder(ctx context.Context, chatID int64) error {
	return b.sendText(ctx, chatID, "🔹 Main menu")
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

// describeError turns service errors into a reply. Unknown errors are shown as is.
func describeError(err error) string {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found. Use the id shown in /tasks."
	case errors.Is(err, service.ErrAmbiguousTask):
		return "That id matches several tasks, send more characters."
	case errors.Is(err, service.ErrPetNotFound):
		return "Pet not found. See /pets."
	case errors.Is(err, service.ErrDuplicatePet):
		return "A pet with that name already exists."
	case errors.Is(err, service.ErrTaskCompleted):
		return "That task is already done."
	case errors.Is(err, service.ErrTaskNotOwned):
		return "That task does not belong to any pet."
	case errors.Is(err, service.ErrInvalidInput):
		return escape(err.Error())
	default:
		return "Error: " + escape(err.Error())
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}

// parseDueDate returns YYYY-MM-DD for today, tomorrow or an explicit date.
func parseDueDate(text string, now time.Time) (string, error) {
	switch strings.ToLower(stripIcon(text)) {
	case "today":
		return now.Format("2006-01-02"), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(text), now.Location())
	if err != nil {
		return "", err
	}
	return parsed.Format("2006-01-02"), nil
}

// parsePetArgs reads "<name> [breed] [age] [weight]".
func parsePetArgs(raw string) (service.PetInput, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return service.PetInput{}, errors.New("usage: /addpet <name> [breed] [age] [weight]")
	}
	in := service.PetInput{Name: fields[0]}
	if len(fields) > 1 {
		in.Breed = fields[1]
	}
	if len(fields) > 2 {
		age, err := strconv.Atoi(fields[2])
		if err != nil {
			return service.PetInput{}, fmt.Errorf("age must be a whole number, got %q", fields[2])
		}
		in.Age = age
	}
	if len(fields) > 3 {
		weight, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return service.PetInput{}, fmt.Errorf("weight must be a number, got %q", fields[3])
		}
		in.Weight = weight
	}
	return in, nil
}

// parseTaskView reads "[sort] [filter] [arg]" where arg is the pet name or
// priority for the pet and priority filters.
func parseTaskView(raw string) (service.TaskView, error) {
	fields := strings.Fields(raw)
	var view service.TaskView
	var err error

	sortArg, filterArg := "", ""
	if len(fields) > 0 {
		sortArg = fields[0]
	}
	if len(fields) > 1 {
		filterArg = fields[1]
	}
	if view.Sort, err = service.ParseSortMode(sortArg); err != nil {
		return view, err
	}
	if view.Filter, err = service.ParseFilterMode(filterArg); err != nil {
		return view, err
	}

	arg := ""
	if len(fields) > 2 {
		arg = strings.Join(fields[2:], " ")
	}
	switch view.Filter {
	case service.FilterPet:
		if arg == "" {
			return view, fmt.Errorf("%w: the pet filter needs a pet name", service.ErrInvalidInput)
		}
		view.Pet = arg
	case service.FilterPriority:
		p, err := model.ParsePriority(arg)
		if err != nil {
			return view, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		view.Priority = p
	}
	return view, nil
}
