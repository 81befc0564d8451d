package modules

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/messages"
)

// ResponseRecorder is a response sender that records the sent messages.
type ResponseRecorder struct {
	mutex sync.Mutex
	msgs  []messages.Msg
}

func (r *ResponseRecorder) Send(requestID uint32, p messages.Payload) {
	msg, err := messages.MsgFromPayload(requestID, p)
	if err != nil {
		logs.WithTag("request_id", requestID).Error(err)
		return
	}
	r.SendMsg(msg)
}

func (r *ResponseRecorder) SendMsg(msg messages.Msg) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.msgs = append(r.msgs, msg)
}

// Msgs returns the recorded messages.
func (r *ResponseRecorder) Msgs() []messages.Msg {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]messages.Msg(nil), r.msgs...)
}

// Last returns the last recorded message.
func (r *ResponseRecorder) Last() (messages.Msg, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.msgs) == 0 {
		return messages.Msg{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}
