package email

const (
	subjectLeadFmt         = "New %s enquiry: %s"
	subjectHighPriorityFmt = "[High priority] New %s enquiry: %s"
)
