package raffle

import "errors"

var (
	ErrRaffleFull            = errors.New("raffle: this raffle is already full")
	ErrRaffleNotOpen         = errors.New("raffle: this raffle is not open for ticket purchases")
	ErrRaffleNotClosed       = errors.New("raffle: this raffle is not closed for prize distribution")
	ErrInvalidWinner         = errors.New("raffle: the provided winner does not match the stored winner")
	ErrInvalidRaffleAccount  = errors.New("raffle: the raffle account does not match the tier id")
	ErrInvalidTier           = errors.New("raffle: the provided tier id is not valid")
	ErrSlotHashesUnavailable = errors.New("raffle: slot hashes are not yet available")

	ErrInvalidPayment     = errors.New("raffle: payment must equal the ticket price")
	ErrInvalidParticipant = errors.New("raffle: participant address is empty")
	ErrUnauthorized       = errors.New("raffle: caller is not the raffle authority")
)

// Program error codes, in the numbering clients already know.
var errorCodes = []struct {
	err  error
	code uint32
}{
	{ErrRaffleFull, 6000},
	{ErrRaffleNotOpen, 6001},
	{ErrRaffleNotClosed, 6002},
	{ErrInvalidWinner, 6003},
	{ErrInvalidRaffleAccount, 6004},
	{ErrInvalidTier, 6005},
	{ErrSlotHashesUnavailable, 6006},
	{ErrInvalidPayment, 6007},
	{ErrInvalidParticipant, 6008},
	{ErrUnauthorized, 6009},
}

// Code maps a raffle error to its numeric program code.
func Code(err error) (uint32, bool) {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code, true
		}
	}
	return 0, false
}
