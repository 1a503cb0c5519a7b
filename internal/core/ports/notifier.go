package ports

// Notifier surfaces task failures to the developer.
//
//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	// Notify reports err under a short category title such as "SCSS".
	Notify(title string, err error)
}
