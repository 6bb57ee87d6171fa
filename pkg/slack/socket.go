package slack

import (
	"context"
	"errors"
	"sync"

	"scrapebot/internal/privacy"
	"scrapebot/pkg/slack/types"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Submitter schedules event handling off the transport goroutine
type Submitter interface {
	Submit(task func()) error
}

// SocketListener receives events over Socket Mode and hands them to a dispatcher
type SocketListener struct {
	client     *socketmode.Client
	dispatcher types.Dispatcher
	pool       Submitter
	command    string
	logger     *logrus.Logger
}

// NewSocketListener creates a listener for the bot's mentions and slash command
func NewSocketListener(api *slack.Client, dispatcher types.Dispatcher, pool Submitter, command string, debug bool, logger *logrus.Logger) *SocketListener {
	client := socketmode.New(api,
		socketmode.OptionDebug(debug),
		socketmode.OptionLog(newLogAdapter(logger, "slack_socketmode")),
	)
	return &SocketListener{
		client:     client,
		dispatcher: dispatcher,
		pool:       pool,
		command:    command,
		logger:     logger,
	}
}

// Run connects and processes events until ctx is canceled. Dispatched
// handlers keep ctx's values but not its cancellation.
func (l *SocketListener) Run(ctx context.Context) error {
	go l.consume(ctx)
	err := l.client.RunContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (l *SocketListener) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.client.Events:
			if !ok {
				return
			}
			l.handle(context.WithoutCancel(ctx), evt)
		}
	}
}

func (l *SocketListener) handle(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("Connecting to Slack with Socket Mode")
	case socketmode.EventTypeConnectionError:
		l.logger.Warn("Slack Socket Mode connection failed, retrying")
	case socketmode.EventTypeConnected:
		l.logger.Info("Connected to Slack with Socket Mode")
	case socketmode.EventTypeEventsAPI:
		l.handleEventsAPI(ctx, evt)
	case socketmode.EventTypeSlashCommand:
		l.handleSlashCommand(ctx, evt)
	default:
		l.logger.WithField("type", evt.Type).Debug("Ignoring Socket Mode event")
	}
}

func (l *SocketListener) handleEventsAPI(ctx context.Context, evt socketmode.Event) {
	eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		l.logger.WithField("type", evt.Type).Warn("Unexpected Events API payload")
		return
	}
	if evt.Request != nil {
		l.client.Ack(*evt.Request)
	}

	mention, ok := mentionFromEvent(eventsAPIEvent)
	if !ok {
		return
	}
	l.submit(func() {
		l.dispatcher.HandleMention(ctx, mention)
	})
}

func (l *SocketListener) handleSlashCommand(ctx context.Context, evt socketmode.Event) {
	cmd, ok := evt.Data.(slack.SlashCommand)
	if !ok {
		l.logger.WithField("type", evt.Type).Warn("Unexpected slash command payload")
		return
	}

	// Slack expects the ack within three seconds, so it is sent before queueing.
	ack := l.ackOnce(evt.Request)
	ack()

	if l.command != "" && cmd.Command != l.command {
		l.logger.WithField("command", cmd.Command).Debug("Ignoring unknown slash command")
		return
	}

	req := commandFromSlash(cmd)
	l.logger.WithFields(commandLogFields(req)).Debug("Queueing slash command")
	l.submit(func() {
		l.dispatcher.HandleCommand(ctx, req, ack)
	})
}

func (l *SocketListener) ackOnce(req *socketmode.Request) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if req != nil {
				l.client.Ack(*req)
			}
		})
	}
}

func (l *SocketListener) submit(task func()) {
	if err := l.pool.Submit(task); err != nil {
		l.logger.WithError(err).Error("Dropping Slack event")
	}
}

// mentionFromEvent extracts an app_mention from an Events API callback
func mentionFromEvent(event slackevents.EventsAPIEvent) (types.MentionEvent, bool) {
	if event.Type != slackevents.CallbackEvent {
		return types.MentionEvent{}, false
	}

	ev, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		return types.MentionEvent{}, false
	}
	return types.MentionEvent{
		Text:    ev.Text,
		User:    ev.User,
		Channel: ev.Channel,
		TS:      ev.TimeStamp,
	}, true
}

func commandFromSlash(cmd slack.SlashCommand) types.CommandRequest {
	return types.CommandRequest{
		Command:     cmd.Command,
		Text:        cmd.Text,
		UserID:      cmd.UserID,
		ChannelID:   cmd.ChannelID,
		ResponseURL: cmd.ResponseURL,
	}
}

// commandLogFields describes a command for logs without leaking its response URL
func commandLogFields(cmd types.CommandRequest) logrus.Fields {
	return privacy.MaskSensitiveFields(map[string]interface{}{
		"command":      cmd.Command,
		"user_id":      cmd.UserID,
		"channel_id":   cmd.ChannelID,
		"response_url": cmd.ResponseURL,
	})
}
