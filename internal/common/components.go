package common

const (
	ComponentGateway          = "gateway"
	ComponentRegistry         = "registry"
	ComponentStore            = "store"
	ComponentWatchSet         = "watchset"
	ComponentScanner          = "scanner"
	ComponentOrchestrator     = "orchestrator"
	ComponentScheduler        = "scheduler"
	ComponentCoordinator      = "coordinator"
	ComponentMaintenance      = "maintenance"
	ComponentKeyStore         = "keystore"
	ComponentDelivery         = "delivery"
	ComponentIssueRedeem      = "issue-redeem"
	ComponentTransfer         = "transfer"
	ComponentTransferApproval = "transfer-approval"
	ComponentPersonalInfo     = "personal-info"
)

var AllComponents = map[string]struct{}{
	ComponentGateway:          {},
	ComponentRegistry:         {},
	ComponentStore:            {},
	ComponentWatchSet:         {},
	ComponentScanner:          {},
	ComponentOrchestrator:     {},
	ComponentScheduler:        {},
	ComponentCoordinator:      {},
	ComponentMaintenance:      {},
	ComponentKeyStore:         {},
	ComponentDelivery:         {},
	ComponentIssueRedeem:      {},
	ComponentTransfer:         {},
	ComponentTransferApproval: {},
	ComponentPersonalInfo:     {},
}
