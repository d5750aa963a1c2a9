package kernel

// AdminID identifies an Admin entity.
type AdminID string

func NewAdminID(id string) AdminID { return AdminID(id) }
func (a AdminID) String() string   { return string(a) }
func (a AdminID) IsEmpty() bool    { return string(a) == "" }

// LicenseID identifies a License entity.
type LicenseID string

func NewLicenseID(id string) LicenseID { return LicenseID(id) }
func (l LicenseID) String() string     { return string(l) }
func (l LicenseID) IsEmpty() bool      { return string(l) == "" }

// HardwareID identifies a Hardware entity.
type HardwareID string

func NewHardwareID(id string) HardwareID { return HardwareID(id) }
func (h HardwareID) String() string      { return string(h) }
func (h HardwareID) IsEmpty() bool       { return string(h) == "" }
