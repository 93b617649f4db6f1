package emailsvc

import (
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/ripoti/core"
)

var (
	// SentMessages records messages "sent" by the console service; used
	// by tests to assert on email side effects.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail string
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		disableOutput:    conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if msg.HasRecipients() && msg.HasContent() {
		svc.send(*msg)
	}
}

func (svc consoleService) send(msg core.EmailMessage) {
	mu.Lock()
	SentMessages = append(SentMessages, msg)
	mu.Unlock()

	if svc.disableOutput {
		return
	}

	var out strings.Builder
	out.WriteString("From: " + svc.defaultFromEmail + "\n")
	out.WriteString("To: " + joinAddresses(msg.To) + "\n")
	if len(msg.Cc) > 0 {
		out.WriteString("Cc: " + joinAddresses(msg.Cc) + "\n")
	}
	out.WriteString("Subject: " + svc.subjPrefix + msg.Subject + "\n")
	out.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\n\n")
	out.WriteString(msg.Body)
	log.Print(out.String())
}

// ClearSentMessages resets the sent messages record between tests.
func ClearSentMessages() {
	mu.Lock()
	SentMessages = SentMessages[:0]
	mu.Unlock()
}

func joinAddresses(addrs []mail.Address) string {
	strs := make([]string, 0, len(addrs))
	for _, a := range addrs {
		strs = append(strs, fmt.Sprint(a.String()))
	}
	return strings.Join(strs, ", ")
}
