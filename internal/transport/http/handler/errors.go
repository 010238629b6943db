package handler

const (
	errInternalServer     = "Something went wrong"
	errInvalidCredentials = "Email or Password is not valid"
	errEmailTaken         = "User with this email already exists"
	errUserNotFound       = "User does not exist"
	errOTPMismatch        = "OTP does not match. Please enter valid OTP"
	errTokenInvalid       = "Token is invalid"
	errTokenExpired       = "Token is expired"
	errTokenRevoked       = "Token is blacklisted"
	errOAuthExchange      = "Failed to get access token from Google."
	errOAuthUserInfo      = "Failed to fetch user info from Google."

	msgOTPSent         = "OTP Sent Successfully. Please Check your Email"
	msgOTPVerified     = "OTP Verified Successfully!"
	msgLoginSuccess    = "Login Success"
	msgUserNotVerified = "User not verified"
	msgLogout          = "LogOut Successfully"
	msgResetVerified   = "Verified Successfully!"
	msgPasswordReset   = "Password Reset Successfully"
	msgPasswordChanged = "Password Changed Successfully"
	msgRegistered      = "Registration Completed"
	msgTokenValid      = "Token is valid"
)
