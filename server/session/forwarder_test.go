package session_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julienstroheker/pairrelay/internal/chat"
	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/julienstroheker/pairrelay/internal/mocks"
	"github.com/julienstroheker/pairrelay/server/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestForwarder_ForwardsInOrderUntilEndOfStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	first := chat.Message{Sender: "alice", Content: "one", Time: time.Unix(1, 0).UTC()}
	second := chat.Message{Sender: "alice", Content: "two", Time: time.Unix(2, 0).UTC()}

	gomock.InOrder(
		src.EXPECT().Read(gomock.Any()).Return(&first, nil),
		dst.EXPECT().Write(gomock.Any(), first).Return(nil),
		src.EXPECT().Read(gomock.Any()).Return(&second, nil),
		dst.EXPECT().Write(gomock.Any(), second).Return(nil),
		src.EXPECT().Read(gomock.Any()).Return(nil, nil),
	)

	res := session.NewForwarder(nil).Run(context.Background(), src, dst)

	require.Equal(t, session.OutcomeCompleted, res.Outcome)
	require.Equal(t, 2, res.Forwarded)
	require.NoError(t, res.Err)
}

func TestForwarder_ReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	boom := errors.New("connection reset")
	src.EXPECT().Read(gomock.Any()).Return(nil, boom)

	res := session.NewForwarder(nil).Run(context.Background(), src, dst)

	require.Equal(t, session.OutcomeFailed, res.Outcome)
	require.ErrorIs(t, res.Err, boom)
}

func TestForwarder_WriteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	m := chat.NewMessage("bob", "hi")
	boom := errors.New("broken pipe")
	src.EXPECT().Read(gomock.Any()).Return(&m, nil)
	dst.EXPECT().Write(gomock.Any(), m).Return(boom)

	res := session.NewForwarder(nil).Run(context.Background(), src, dst)

	require.Equal(t, session.OutcomeFailed, res.Outcome)
	require.Equal(t, 0, res.Forwarded)
	require.ErrorIs(t, res.Err, boom)
}

func TestForwarder_CancelledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No expectations: any Read or Write fails the test
	res := session.NewForwarder(nil).Run(ctx, src, dst)

	require.Equal(t, session.OutcomeCancelled, res.Outcome)
	require.NoError(t, res.Err)
}

func TestForwarder_CancelledDuringRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	src.EXPECT().Read(gomock.Any()).DoAndReturn(func(ctx context.Context) (*chat.Message, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	res := session.NewForwarder(nil).Run(ctx, src, dst)

	require.Equal(t, session.OutcomeCancelled, res.Outcome)
}

func TestForwarder_NoWriteAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	m := chat.NewMessage("bob", "late")
	src.EXPECT().Read(gomock.Any()).DoAndReturn(func(context.Context) (*chat.Message, error) {
		cancel()
		return &m, nil
	})

	res := session.NewForwarder(nil).Run(ctx, src, dst)

	require.Equal(t, session.OutcomeCancelled, res.Outcome)
	require.Equal(t, 0, res.Forwarded)
}

func TestForwarder_LogsMessagesAtDebug(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)
	dst := mocks.NewMockWriter(ctrl)

	m := chat.NewMessage("carol", "hello there")
	src.EXPECT().Read(gomock.Any()).Return(&m, nil)
	dst.EXPECT().Write(gomock.Any(), m).Return(nil)
	src.EXPECT().Read(gomock.Any()).Return(nil, nil)

	buf := &bytes.Buffer{}
	logger := logging.NewWithOutput(logging.DebugLevel, buf)

	session.NewForwarder(logger).Run(context.Background(), src, dst)

	output := buf.String()
	require.Contains(t, output, "Forwarding message")
	require.Contains(t, output, "sender=carol")
	require.Contains(t, output, "content=hello there")
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "completed", session.OutcomeCompleted.String())
	require.Equal(t, "cancelled", session.OutcomeCancelled.String())
	require.Equal(t, "failed", session.OutcomeFailed.String())
	require.Equal(t, "unknown", session.Outcome(42).String())
}
