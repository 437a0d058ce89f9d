package realtime

// Notification kinds routed through the hub. The topic for a kind is
// "<jobID>.<kind>" so a client with several open conversations can route by
// prefix.
const (
	KindMessageStarted          = "messageStarted"
	KindMessageChunk            = "messageChunk"
	KindMessageComplete         = "messageComplete"
	KindCandidateAdded          = "candidateAdded"
	KindCustomFieldCreated      = "customFieldCreated"
	KindCustomFieldValueCreated = "customFieldValueCreated"
)

func Topic(jobID, kind string) string {
	return jobID + "." + kind
}

// ChatEnvelope builds the envelope for one chat event. appPayload carries the
// (job, message) pair the client needs to place the event in the right
// conversation; extra fields are merged into data alongside it.
func ChatEnvelope(jobID, kind, messageID string, extra map[string]any) Envelope {
	data := map[string]any{
		"appPayload": map[string]any{
			"jobId":     jobID,
			"messageId": messageID,
		},
	}
	for k, v := range extra {
		data[k] = v
	}
	return Envelope{MessageType: Topic(jobID, kind), Data: data}
}
