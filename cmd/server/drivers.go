package main

// 引入平台驱动，触发各平台的 init() 完成注册
import (
	_ "github.com/netsnapshot/netsnapshot/addone/driver/platforms/cisco_ios"
	_ "github.com/netsnapshot/netsnapshot/addone/driver/platforms/huawei_vrp"
)
