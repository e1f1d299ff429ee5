package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrAdminAccessOnly       ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrScheduleClosed        ErrCode = "SCHEDULE_CLOSED"
	ErrRegistrationRequired  ErrCode = "REGISTRATION_REQUIRED"
	ErrAttemptAlreadyActive  ErrCode = "ATTEMPT_ALREADY_ACTIVE"
	ErrAttemptNotFound       ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptCompleted      ErrCode = "ATTEMPT_COMPLETED"
	ErrAttemptNotInterrupted ErrCode = "ATTEMPT_NOT_INTERRUPTED"
	ErrAttemptNotInProgress  ErrCode = "ATTEMPT_NOT_IN_PROGRESS"
	ErrResumeNotAuthorized   ErrCode = "RESUME_NOT_AUTHORIZED"
	ErrTransitionConflict    ErrCode = "TRANSITION_CONFLICT"

	// ─── Access gate ───────────────────────────────────────────────────
	ErrOriginDenied      ErrCode = "ORIGIN_DENIED"
	ErrInvalidBypassCode ErrCode = "INVALID_BYPASS_CODE"

	// ─── Rate limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal  ErrCode = "INTERNAL_ERROR"
	ErrRetryable ErrCode = "RETRYABLE_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username/email atau kata sandi salah."
	case ErrSessionActive:
		return "Anda sudah login di perangkat lain."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrParticipantAccessOnly:
		return "Sumber daya ini terbatas untuk peserta."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrScheduleClosed:
		return "Jadwal tes ini tidak sedang dibuka."
	case ErrRegistrationRequired:
		return "Pendaftaran Anda untuk jadwal ini belum disetujui."
	case ErrAttemptAlreadyActive:
		return "Anda masih memiliki sesi tes aktif untuk jadwal ini."
	case ErrAttemptNotFound:
		return "Sesi tes tidak ditemukan."
	case ErrAttemptCompleted:
		return "Tes ini sudah selesai dan tidak dapat diubah lagi."
	case ErrAttemptNotInterrupted:
		return "Sesi tes tidak dalam keadaan terputus."
	case ErrAttemptNotInProgress:
		return "Sesi tes tidak sedang berjalan."
	case ErrResumeNotAuthorized:
		return "Tes Anda terputus. Hubungi pengawas untuk izin melanjutkan."
	case ErrTransitionConflict:
		return "Permintaan bertabrakan dengan perubahan lain. Silakan coba lagi."

	// ─── Access gate ───────────────────────────────────────────────────
	case ErrOriginDenied:
		return "Alamat jaringan Anda tidak diizinkan mengakses sumber daya ini."
	case ErrInvalidBypassCode:
		return "Kode bypass tidak valid."

	// ─── Rate limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	case ErrRetryable:
		return "Server sedang sibuk. Permintaan aman untuk diulang."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
