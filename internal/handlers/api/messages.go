package api

const (
	MsgInternalServerError  = "Internal server error"
	MsgInvalidRequestBody   = "Invalid request body"
	MsgUserRegistered       = "User registered"
	MsgEmailRegistered      = "Email already exists"
	MsgLoginSuccessful      = "Login successful"
	MsgInvalidCredentials   = "Invalid credentials"
	MsgLogoutSuccessful     = "Logged out"
	MsgUserNotFound         = "User not found"
	MsgProfileUpdated       = "User profile updated successfully"
	MsgUsersFetched         = "Users fetched successfully"
	MsgOTPSent              = "OTP sent to email"
	MsgOTPDeliveryFailed    = "Failed to send OTP email"
	MsgNoSuchAccount        = "User with this email does not exist"
	MsgNoActiveOTP          = "No active OTP for this account"
	MsgOTPExpired           = "OTP has expired"
	MsgOTPMismatch          = "Invalid OTP"
	MsgOTPTooManyAttempts   = "Too many failed attempts, request a new OTP"
	MsgPasswordReset        = "Password has been reset successfully"
	MsgBlogCreated          = "Blog created"
	MsgBlogUpdated          = "Blog updated"
	MsgBlogDeleted          = "Blog deleted"
	MsgBlogNotFound         = "Blog not found or not authorized"
	MsgBlogTitleTaken       = "A blog with this title already exists"
	MsgBlogLiked            = "Blog liked"
	MsgBlogUnliked          = "Blog unliked"
	MsgNoFileUploaded       = "No file uploaded"
	MsgUnsupportedImageType = "Unsupported image type"
	MsgImageUploadFailed    = "Failed to upload image"
	MsgInvalidBlogID        = "Invalid blog id"
)
