package quote

// BranchInfo carries the per-branch bank account and contact details that go
// onto rendered quote documents.
type BranchInfo struct {
	BankAccountName   string `json:"bank_account_name"`
	BankName          string `json:"bank_name"`
	BankCode          string `json:"bank_code"`
	BankAccountNumber string `json:"bank_account_number"`
	ContactEmail      string `json:"contact_email"`
	ContactPhone      string `json:"contact_phone"`
}

// BranchDirectory is constructor-injected configuration, replacing what used
// to be module-level constants.
type BranchDirectory struct {
	branches map[int]BranchInfo
	fallback BranchInfo
}

func NewBranchDirectory(branches map[int]BranchInfo, fallback BranchInfo) BranchDirectory {
	copied := make(map[int]BranchInfo, len(branches))
	for id, info := range branches {
		copied[id] = info
	}
	return BranchDirectory{branches: copied, fallback: fallback}
}

func (d BranchDirectory) Lookup(branchID int) BranchInfo {
	if info, ok := d.branches[branchID]; ok {
		return info
	}
	return d.fallback
}

// BranchConfig is the envconfig surface for the directory. Both branches
// share one bank account today; the directory still keys by branch so they
// can diverge.
type BranchConfig struct {
	BankAccountName   string `envconfig:"BANK_ACCOUNT_NAME" split_words:"true" default:"Hour Jungle Co., Ltd."`
	BankName          string `envconfig:"BANK_NAME" split_words:"true" default:"Bank SinoPac (South Taichung)"`
	BankCode          string `envconfig:"BANK_CODE" split_words:"true" default:"807"`
	BankAccountNumber string `envconfig:"BANK_ACCOUNT_NUMBER" split_words:"true" default:"03801800183399"`
	ContactEmail      string `envconfig:"CONTACT_EMAIL" split_words:"true" default:"wtxg@hourjungle.com"`
	ContactPhone      string `envconfig:"CONTACT_PHONE" split_words:"true" default:"04-23760282"`
	BranchIDs         []int  `envconfig:"BRANCH_IDS" split_words:"true" default:"1,2"`
}

func DirectoryFromConfig(cfg BranchConfig) BranchDirectory {
	info := BranchInfo{
		BankAccountName:   cfg.BankAccountName,
		BankName:          cfg.BankName,
		BankCode:          cfg.BankCode,
		BankAccountNumber: cfg.BankAccountNumber,
		ContactEmail:      cfg.ContactEmail,
		ContactPhone:      cfg.ContactPhone,
	}
	branches := make(map[int]BranchInfo, len(cfg.BranchIDs))
	for _, id := range cfg.BranchIDs {
		branches[id] = info
	}
	return NewBranchDirectory(branches, info)
}
