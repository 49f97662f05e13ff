package mail

// Message is a fully-formed outbound email. It is what crosses the queue
// boundary between the API and the mail worker, so it must stay
// JSON-serializable and self-contained.
type Message struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	HTMLBody string   `json:"html_body"`
}

const (
	// StreamName is the JetStream stream holding queued mail jobs
	StreamName = "MAIL"
	// SubjectSend is the subject mail jobs are published on
	SubjectSend = "mail.send"
	// DurableConsumer is the mail worker's durable consumer name
	DurableConsumer = "mail-worker"
)
