package payment

// Service composes the confirm and cancel coordinators behind the single
// inbound contract the transport layer consumes.
type Service struct {
	*ConfirmService
	*CancelService
}

func NewService(confirm *ConfirmService, cancel *CancelService) *Service {
	return &Service{
		ConfirmService: confirm,
		CancelService:  cancel,
	}
}

var _ ServiceAPI = (*Service)(nil)
