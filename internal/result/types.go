package result

// FileName is the result file the training program writes into a job directory.
const FileName = "results.json"

// Result is the validated subset of a job's results.json.
type Result struct {
	TestAcc      float64 `json:"test_acc"`
	TestLoss     float64 `json:"test_loss"`
	ValAcc       float64 `json:"val_acc"`
	ValLoss      float64 `json:"val_loss"`
	FGSMAccuracy float64 `json:"fgsm_accuracy"`
}

// raw mirrors the on-disk schema. Pointers distinguish a missing key from zero.
type raw struct {
	TestAcc  *float64 `json:"test_acc"`
	TestLoss *float64 `json:"test_loss"`
	ValAcc   *float64 `json:"val_acc"`
	ValLoss  *float64 `json:"val_loss"`
	FGSM     *struct {
		Accuracy *float64 `json:"accuracy"`
	} `json:"fgsm"`
}
