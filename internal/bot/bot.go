package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"schedbot/internal/schedule"
	"schedbot/internal/storage"
	"schedbot/pkg/logx"
)

// SnapshotLoader returns the latest known schedule for a group.
type SnapshotLoader func(gid string) ([]schedule.Entry, error)

// Config holds everything the command layer needs beyond the token.
type Config struct {
	Token       string
	Groups      []string // display names offered in the group picker
	Location    *time.Location
	PollTimeout time.Duration
	Load        SnapshotLoader
}

// Bot wraps the telebot instance together with the subscriber store.
// It implements notify.Sender.
type Bot struct {
	tb     *tele.Bot
	store  storage.Store
	groups []string
	loc    *time.Location
	load   SnapshotLoader
	log    logx.Logger
}

const (
	btnToday     = "Сегодня"
	btnTomorrow  = "Завтра"
	btnThisWeek  = "Эта неделя"
	btnNextWeek  = "Следующая неделя"
	btnPickGroup = "Сменить группу"
	btnBack      = "Назад"
)

func New(cfg Config, store storage.Store, log logx.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot: token is required")
	}
	if cfg.Load == nil {
		return nil, fmt.Errorf("bot: snapshot loader is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 10 * time.Second
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: poll},
	})
	if err != nil {
		return nil, fmt.Errorf("bot: create: %w", err)
	}

	b := &Bot{
		tb:     tb,
		store:  store,
		groups: append([]string(nil), cfg.Groups...),
		loc:    loc,
		load:   cfg.Load,
		log:    log,
	}
	b.register()
	return b, nil
}

// Send delivers a plain-text message to a chat. Satisfies notify.Sender.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.tb.Send(&tele.Chat{ID: chatID}, text)
	return err
}

// Start begins long polling and blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()
	b.log.Info("bot: long polling started")
	b.tb.Start()
}

func (b *Bot) register() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/help", b.handleHelp)
	b.tb.Handle("/subscribe", b.handleSubscribe)
	b.tb.Handle("/unsubscribe", b.handleUnsubscribe)
	b.tb.Handle("/group", b.handlePickGroup)
	for _, alias := range []string{"/today", "/tomorrow", "/week", "/nextweek"} {
		b.tb.Handle(alias, b.periodHandler(alias))
	}
	b.tb.Handle(tele.OnText, b.handleText)
}

func (b *Bot) periodHandler(alias string) tele.HandlerFunc {
	title, offset, week, _ := periodRequest(alias)
	return func(c tele.Context) error {
		return b.sendPeriod(c, title, offset, week)
	}
}

func (b *Bot) mainMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(btnToday), menu.Text(btnTomorrow)),
		menu.Row(menu.Text(btnThisWeek), menu.Text(btnNextWeek)),
		menu.Row(menu.Text(btnPickGroup)),
	)
	return menu
}

func (b *Bot) groupMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	gids := append([]string(nil), b.groups...)
	sort.Strings(gids)
	rows := make([]tele.Row, 0, len(gids)/2+2)
	for i := 0; i < len(gids); i += 2 {
		if i+1 < len(gids) {
			rows = append(rows, menu.Row(menu.Text(gids[i]), menu.Text(gids[i+1])))
		} else {
			rows = append(rows, menu.Row(menu.Text(gids[i])))
		}
	}
	rows = append(rows, menu.Row(menu.Text(btnBack)))
	menu.Reply(rows...)
	return menu
}

func (b *Bot) handleStart(c tele.Context) error {
	gid, ok := b.chatGroup(c)
	if !ok {
		return c.Send("Привет! Выберите группу:", b.groupMenu())
	}
	return c.Send("Группа: "+gid+". Выберите период:", b.mainMenu())
}

func (b *Bot) handleHelp(c tele.Context) error {
	text := strings.Join([]string{
		"/start — выбрать группу и открыть меню",
		"/group — сменить группу",
		"/today — расписание на сегодня",
		"/tomorrow — расписание на завтра",
		"/week — расписание на эту неделю",
		"/nextweek — расписание на следующую неделю",
		"/subscribe — получать уведомления об изменениях",
		"/unsubscribe — отключить уведомления",
	}, "\n")
	return c.Send(text, b.mainMenu())
}

func (b *Bot) handleSubscribe(c tele.Context) error {
	if b.store == nil {
		return c.Send("Уведомления недоступны.")
	}
	added, err := b.store.AddSubscriber(context.Background(), c.Chat().ID)
	if err != nil {
		b.log.Warn("bot: subscribe failed", logx.Err(err), logx.Int64("chat", c.Chat().ID))
		return c.Send("Не получилось, попробуйте позже.")
	}
	if !added {
		return c.Send("Вы уже подписаны.")
	}
	return c.Send("Подписка оформлена. Пришлю сообщение, когда расписание изменится.")
}

func (b *Bot) handleUnsubscribe(c tele.Context) error {
	if b.store == nil {
		return c.Send("Уведомления недоступны.")
	}
	removed, err := b.store.RemoveSubscriber(context.Background(), c.Chat().ID)
	if err != nil {
		b.log.Warn("bot: unsubscribe failed", logx.Err(err), logx.Int64("chat", c.Chat().ID))
		return c.Send("Не получилось, попробуйте позже.")
	}
	if !removed {
		return c.Send("Вы и не были подписаны.")
	}
	return c.Send("Подписка отключена.")
}

func (b *Bot) handlePickGroup(c tele.Context) error {
	return c.Send("Выберите группу:", b.groupMenu())
}

// handleText dispatches the reply-keyboard buttons and group picks.
func (b *Bot) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if title, offset, week, ok := periodRequest(text); ok {
		return b.sendPeriod(c, title, offset, week)
	}
	switch text {
	case btnPickGroup:
		return b.handlePickGroup(c)
	case btnBack:
		return c.Send("Меню:", b.mainMenu())
	}
	for _, name := range b.groups {
		if text == name {
			return b.setGroup(c, name)
		}
	}
	return c.Send("Не понял. Нажмите /help.", b.mainMenu())
}

// setGroup stores the stable group id; buttons carry display names.
func (b *Bot) setGroup(c tele.Context, name string) error {
	if b.store != nil {
		if err := b.store.SetGroup(context.Background(), c.Chat().ID, schedule.GroupID(name)); err != nil {
			b.log.Warn("bot: set group failed", logx.Err(err), logx.Int64("chat", c.Chat().ID))
			return c.Send("Не получилось сохранить группу, попробуйте позже.")
		}
	}
	return c.Send("Группа "+name+" выбрана.", b.mainMenu())
}

func (b *Bot) chatGroup(c tele.Context) (string, bool) {
	if b.store == nil {
		return "", false
	}
	gid, ok, err := b.store.GetGroup(context.Background(), c.Chat().ID)
	if err != nil {
		b.log.Warn("bot: get group failed", logx.Err(err), logx.Int64("chat", c.Chat().ID))
		return "", false
	}
	return gid, ok
}

func (b *Bot) sendPeriod(c tele.Context, title string, offset int, week bool) error {
	gid, ok := b.chatGroup(c)
	if !ok {
		return c.Send("Сначала выберите группу:", b.groupMenu())
	}
	items, err := b.load(gid)
	if err != nil {
		b.log.Warn("bot: load snapshot failed", logx.Err(err), logx.String("group", gid))
		return c.Send("Расписание пока недоступно, попробуйте позже.")
	}

	now := time.Now().In(b.loc)
	var start, end time.Time
	if week {
		start, end = weekBounds(now, offset)
	} else {
		start, end = dayBounds(now, offset)
	}
	return c.Send(FormatPeriod(FilterByDateRange(items, start, end), title), b.mainMenu())
}
