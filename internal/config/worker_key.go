package config

type WorkerKeyStruct struct {
	PersistAnswersQueue    string
	PersistViolationsQueue string
	ViolationDeadLetters   string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:    "persist_answers_queue",
	PersistViolationsQueue: "persist_violations_queue",
	ViolationDeadLetters:   "persist_violations_dead",
}
