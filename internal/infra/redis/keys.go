package redis

// ResultsQueue is the list grading consumers pop terminal results from.
const ResultsQueue = "exam:results:queue"

func sessionKey(sessionID string) string {
	return "exam:session:" + sessionID
}

func examPayloadKey(examID string) string {
	return "exam:" + examID + ":payload"
}
