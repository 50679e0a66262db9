package config

type WorkerKeyStruct struct {
	PersistScoresQueue     string
	PersistUnfairnessQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistScoresQueue:     "persist_scores_queue",
	PersistUnfairnessQueue: "persist_unfairness_queue",
}
